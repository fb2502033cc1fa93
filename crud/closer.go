package crud

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/kbukum/crudkit/stream"
)

var errSecondResponse = errors.New("crud: source emitted a second response")

// CloseResponses returns an operator that closes the response it carries
// exactly once. The terminal signal is forwarded first and the response is
// released afterwards, even if a downstream handler panics. Canceling the
// subscription also releases a held response.
//
// Close failures are reported to stream.Undeliverable.
func CloseResponses() stream.Operator[Response, Response] {
	return func(ctx context.Context, down stream.Observer[Response]) stream.Observer[Response] {
		c := &closer{ctx: ctx, down: down}
		context.AfterFunc(ctx, c.release)
		return c
	}
}

type heldResponse struct {
	resp Response
}

type closer struct {
	ctx        context.Context
	down       stream.Observer[Response]
	slot       atomic.Pointer[heldResponse]
	terminated atomic.Bool
}

func (c *closer) OnNext(resp Response) {
	if c.ctx.Err() != nil {
		closeResponse(resp)
		return
	}
	if c.terminated.Load() || !c.slot.CompareAndSwap(nil, &heldResponse{resp: resp}) {
		closeResponse(resp)
		stream.Undeliverable(errSecondResponse)
		return
	}
	c.down.OnNext(resp)
}

func (c *closer) OnError(err error) {
	c.terminated.Store(true)
	defer c.release()
	c.down.OnError(err)
}

func (c *closer) OnCompleted() {
	c.terminated.Store(true)
	defer c.release()
	c.down.OnCompleted()
}

func (c *closer) release() {
	if h := c.slot.Swap(nil); h != nil {
		closeResponse(h.resp)
	}
}

func closeResponse(resp Response) {
	if resp == nil {
		return
	}
	if err := resp.Close(); err != nil {
		stream.Undeliverable(err)
	}
}

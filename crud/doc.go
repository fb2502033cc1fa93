// Package crud exposes remote resources through a uniform read, write,
// update and delete contract.
//
// Every operation returns a cold *stream.Single[Response]: nothing is sent
// until the stream is subscribed, and each subscription performs exactly one
// transport call. The response handle carried by the stream is closed by
// the stream itself, once, after the terminal signal has been delivered,
// so its body must be read inside the pipeline. ReadEntity and Map with
// AsEntity decode it while it is still open.
//
//	p := crud.NewProvider(adapter, crud.WithTemplate(defaults))
//	asset, err := stream.Await(ctx, crud.ReadEntity[Asset](p.Get("/assets/42"), crud.ServerErrors))
//
// Status codes that should fail the stream are configured with a
// FailureSet and the FailedResponses operator. Retries are composed with
// (*stream.Single).Retry and DefaultRetryConfig.
package crud

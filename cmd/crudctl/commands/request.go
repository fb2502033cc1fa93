package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/crudkit/crud"
	goerrors "github.com/kbukum/crudkit/errors"
	"github.com/kbukum/crudkit/httpclient"
	"github.com/kbukum/crudkit/logger"
	"github.com/kbukum/crudkit/observability"
	"github.com/kbukum/crudkit/stream"
	"github.com/kbukum/crudkit/template"
)

// Result is the printable outcome of one exchange. JSON bodies are kept
// structured; anything else is printed as text.
type Result struct {
	Status  int               `json:"status" yaml:"status"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    any               `json:"body,omitempty" yaml:"body,omitempty"`
}

func newGetCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get <address>",
		Short: "Read a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, http.MethodGet, args[0], nil)
		},
	}
}

func newPutCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <address>",
		Short: "Write a resource",
		Long:  "Replace or create the resource at address with the --data body or --form parts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readData(cmd)
			if err != nil {
				return err
			}
			return run(cmd, v, http.MethodPut, args[0], body)
		},
	}
	addDataFlag(cmd)
	return cmd
}

func newPostCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post <address>",
		Short: "Update a resource",
		Long:  "Post the --data body or --form parts to the resource at address.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readData(cmd)
			if err != nil {
				return err
			}
			return run(cmd, v, http.MethodPost, args[0], body)
		},
	}
	addDataFlag(cmd)
	return cmd
}

func newDeleteCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <address>",
		Aliases: []string{"rm"},
		Short:   "Delete a resource",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, http.MethodDelete, args[0], nil)
		},
	}
}

func addDataFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("data", "d", "", "request body; @file reads a file, - reads stdin")
	cmd.Flags().StringArrayP("form", "F", nil, "multipart form part name=value; name=@file uploads a file")
	cmd.MarkFlagsMutuallyExclusive("data", "form")
}

// readData resolves the --data and --form flags into a template body:
// nil, raw bytes or a multipart form.
func readData(cmd *cobra.Command) (any, error) {
	form, err := cmd.Flags().GetStringArray("form")
	if err != nil {
		return nil, err
	}
	if len(form) > 0 {
		return parseForm(form)
	}

	data, err := cmd.Flags().GetString("data")
	if err != nil {
		return nil, err
	}
	switch {
	case data == "-":
		return io.ReadAll(cmd.InOrStdin())
	case strings.HasPrefix(data, "@"):
		return os.ReadFile(strings.TrimPrefix(data, "@"))
	case data == "":
		return nil, nil
	}
	return []byte(data), nil
}

func parseForm(parts []string) (*httpclient.MultipartBody, error) {
	body := httpclient.NewMultipartBody()
	for _, p := range parts {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, goerrors.InvalidInput("form", fmt.Sprintf("form part %q must be name=value or name=@file", p))
		}
		if path, isFile := strings.CutPrefix(value, "@"); isFile {
			body.LocalFile(name, path)
			continue
		}
		body.Field(name, value)
	}
	return body, nil
}

func run(cmd *cobra.Command, v *viper.Viper, method, address string, body any) error {
	cfg, err := settings(cmd, v)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := newSession(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(context.Background()); cerr != nil {
			s.log.Warn("shutdown failed", logger.Fields(logger.FieldError, cerr.Error()))
		}
	}()

	requestID := uuid.NewString()
	ctx = logger.ContextWithRequestID(ctx, requestID)
	ctx, op := observability.StartOperation(ctx, cfg.Name, strings.ToLower(method), requestID, s.metrics)

	result, err := s.exchange(ctx, method, address, body)
	op.End(ctx, err)
	s.logHealth(ctx)

	if err != nil {
		return fmt.Errorf("%s %s: %w", method, address, err)
	}
	return render(cmd.OutOrStdout(), v.GetString("output"), result)
}

// exchange performs one operation and reads the response while it is open.
func (s *session) exchange(ctx context.Context, method, address string, body any) (Result, error) {
	failOn, err := crud.ParseFailureSet(s.cfg.FailOn)
	if err != nil {
		return Result{}, err
	}

	res := s.provider.Get(address)
	override, err := bodyTemplate(res.Template(), body)
	if err != nil {
		return Result{}, err
	}

	var responses *stream.Single[crud.Response]
	switch method {
	case http.MethodPut:
		responses = res.Write(override)
	case http.MethodPost:
		responses = res.Update(override)
	case http.MethodDelete:
		responses = res.Delete()
	default:
		responses = res.Read()
	}

	results := stream.Map(responses.Lift(crud.FailedResponses(failOn)), readResult)
	if s.cfg.Retry.MaxAttempts > 1 {
		results = results.Retry(s.cfg.Retry)
	}
	return stream.Await(ctx, results)
}

// bodyTemplate carries body. Raw JSON is declared as such unless base
// already sets a content type; a form brings its own.
func bodyTemplate(base template.Template, body any) (template.Template, error) {
	if body == nil {
		return template.Empty(), nil
	}
	b := template.NewBuilder().Body(body)
	if raw, ok := body.([]byte); ok {
		if _, declared := base.ContentType(); !declared && json.Valid(raw) {
			b.ContentType(template.JSON)
		}
	}
	return b.Build()
}

func readResult(resp crud.Response) (Result, error) {
	ent, err := crud.AsEntity[[]byte](resp)
	if err != nil {
		return Result{}, err
	}
	r := Result{Status: ent.Status, Headers: make(map[string]string, len(ent.Header))}
	for name, values := range ent.Header {
		r.Headers[name] = strings.Join(values, ", ")
	}
	if len(ent.Value) > 0 {
		var v any
		if json.Valid(ent.Value) && json.Unmarshal(ent.Value, &v) == nil {
			r.Body = v
		} else {
			r.Body = string(ent.Value)
		}
	}
	return r, nil
}

func render(w io.Writer, format string, r Result) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(r)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(r)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")
	_ = table.Append("Status", fmt.Sprintf("%d %s", r.Status, http.StatusText(r.Status)))

	names := make([]string, 0, len(r.Headers))
	for name := range r.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_ = table.Append(name, r.Headers[name])
	}
	if err := table.Render(); err != nil {
		return err
	}

	switch body := r.Body.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, body)
		return err
	default:
		out, err := json.MarshalIndent(body, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}
}

package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"speedrun-api/pkg/srapi"
)

func newGetCmd(a *app) *cobra.Command {
	var headers []string

	cmd := &cobra.Command{
		Use:   "get <path-or-url>",
		Short: "GET a resource and print the response body",
		Long: `GET a resource and print the response body.

Relative paths resolve against api.base_url:
  srapi get games/celeste
  srapi get "runs?game=o1y9wo6q&max=5" -H "Accept: application/json"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}
			defer a.teardown()

			req := srapi.NewRequest(http.MethodGet, a.client.URL(args[0]), nil)
			for _, h := range headers {
				name, value, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("invalid header %q, want \"Name: value\"", h)
				}
				req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
			}

			resp, err := a.client.GetResponse(cmd.Context(), req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if _, err := io.Copy(cmd.OutOrStdout(), resp.Body.Reader()); err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "extra request header, \"Name: value\" (repeatable)")
	return cmd
}

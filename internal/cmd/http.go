package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yasskadd/scrabble/internal/gateway"
)

var (
	httpBody  string
	httpFile  string
	httpField string
	httpJSON  bool
)

// httpCmd represents the http command
var httpCmd = &cobra.Command{
	Use:   "http <get|post|put|patch|delete> <url>",
	Short: "Perform one HTTP call through the pinned-certificate gateway",
	Long: `Perform one HTTP call exactly as the desktop application does.

Relative URLs are resolved against the configured server. With --file the
request becomes a multipart upload; for PATCH, --body is then sent as the
text part named by --field.

Examples:
  scrabble http get /api/profile
  scrabble http post /api/games --body '{"mode":"classic"}'
  scrabble http patch /api/profile/avatar --file avatar.png --field username --body player1`,
	Args: cobra.ExactArgs(2),
	RunE: runHTTP,
}

func init() {
	rootCmd.AddCommand(httpCmd)

	httpCmd.Flags().StringVarP(&httpBody, "body", "b", "", "Request body (JSON), or the PATCH text part with --file")
	httpCmd.Flags().StringVarP(&httpFile, "file", "f", "", "File to upload as multipart form data")
	httpCmd.Flags().StringVarP(&httpField, "field", "k", "", "Name of the PATCH text part (default: "+gateway.DefaultTextFieldKey+")")
	httpCmd.Flags().BoolVar(&httpJSON, "json", false, "Print the raw {body, err} result")
}

var httpMethods = map[string]string{
	"get":    http.MethodGet,
	"post":   http.MethodPost,
	"put":    http.MethodPut,
	"patch":  http.MethodPatch,
	"delete": http.MethodDelete,
}

func runHTTP(cmd *cobra.Command, args []string) error {
	method, ok := httpMethods[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("unsupported method %q", args[0])
	}

	a, err := newRuntime(nil)
	if err != nil {
		return err
	}
	defer a.Close("http command done")

	res := a.Gateway.Do(cmd.Context(), method, gateway.Request{
		URL:      args[1],
		Body:     httpBody,
		FilePath: httpFile,
		FieldKey: httpField,
	})

	out := cmd.OutOrStdout()
	if httpJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else if res.OK() {
		fmt.Fprintln(out, res.Body)
	}
	if !res.OK() {
		return fmt.Errorf("%s", res.Err)
	}
	return nil
}

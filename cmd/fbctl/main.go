package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		baseURL = envOr("FIREBRIDGE_URL", "http://localhost:8080")
		out     = envOr("FIREBRIDGE_OUT", "text")
		timeout = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "fbctl",
		Short: "CLI de operaciones para firebridge",
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del servicio (env FIREBRIDGE_URL)")
	root.PersistentFlags().StringVar(&out, "out", out, "formato de salida: text | json")

	newClient := func() *client {
		return &client{BaseURL: baseURL, OutFormat: out, HTTP: &http.Client{Timeout: timeout}}
	}

	var tokenFile string
	verify := &cobra.Command{
		Use:   "verify [idToken]",
		Short: "Verifica un ID token de Firebase contra el servicio",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			switch {
			case len(args) == 1:
				token = args[0]
			case tokenFile != "":
				b, err := os.ReadFile(tokenFile)
				if err != nil {
					return err
				}
				token = strings.TrimSpace(string(b))
			default:
				return fmt.Errorf("falta el token (argumento o --token-file)")
			}

			body, _ := json.Marshal(map[string]string{"idToken": token})
			c := newClient()
			status, resp, err := c.do(http.MethodPost, "/v1/auth/firebase/verify", body)
			if err != nil {
				return err
			}
			c.print(status, resp)
			if status != http.StatusOK {
				os.Exit(1)
			}
			return nil
		},
	}
	verify.Flags().StringVar(&tokenFile, "token-file", "", "archivo con el ID token")

	health := &cobra.Command{
		Use:   "health",
		Short: "Chequea healthz y readyz del servicio",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			for _, path := range []string{"/healthz", "/readyz"} {
				status, resp, err := c.do(http.MethodGet, path, nil)
				if err != nil {
					return err
				}
				fmt.Printf("%s: ", path)
				c.print(status, resp)
			}
			return nil
		},
	}

	root.AddCommand(verify, health)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

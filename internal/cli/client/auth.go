package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the admin token",
		Long:  "Save, clear and inspect the admin token the agiai CLI sends to the server",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

// AuthLoginCmd creates the auth login command
func AuthLoginCmd() *cobra.Command {
	var token string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save the admin token",
		Long:  "Store the admin token and API URL in global config (~/.config/agiai/config.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd.InOrStdin(), cmd.OutOrStdout(), token, apiURL)
		},
	}

	cmd.Flags().StringVar(&token, "admin-token", "", "Admin token (AGIAI_ADMIN_TOKEN on the server)")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")

	return cmd
}

// AuthLogoutCmd creates the auth logout command
func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the saved token",
		Long:  "Remove stored settings from global config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := RemoveSettings(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged out")
			return nil
		},
	}
}

// AuthStatusCmd creates the auth status command
func AuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the admin token comes from",
		RunE: func(cmd *cobra.Command, args []string) error {
			flagToken, _ := cmd.Flags().GetString("token")
			flagURL, _ := cmd.Flags().GetString("api-url")
			settings, err := ResolveSettings(flagToken, flagURL)
			if err != nil {
				return err
			}
			if outputJSON(cmd) {
				return outputStatusJSON(cmd.OutOrStdout(), settings)
			}
			outputStatusText(cmd.OutOrStdout(), settings)
			return nil
		},
	}
}

func runAuthLogin(in io.Reader, out io.Writer, token, apiURL string) error {
	if token == "" {
		fmt.Fprint(out, "Enter admin token: ")
		input, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read admin token: %w", err)
		}
		token = strings.TrimSpace(input)
	}

	if token == "" {
		return fmt.Errorf("admin token cannot be empty")
	}

	if err := SaveSettings(&SavedSettings{APIURL: apiURL, AdminToken: token}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintln(out, "Successfully logged in")
	return nil
}

func outputStatusJSON(out io.Writer, s *Settings) error {
	status := map[string]interface{}{
		"authenticated":  s.HasToken(),
		"token_source":   string(s.TokenFrom),
		"api_url":        s.APIURL,
		"api_url_source": string(s.APIURLFrom),
	}
	if s.HasToken() {
		status["admin_token"] = maskToken(s.Token)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	fmt.Fprintln(out, string(data))
	return nil
}

func outputStatusText(out io.Writer, s *Settings) {
	fmt.Fprintf(out, "API URL: %s (%s)\n", s.APIURL, s.APIURLFrom)
	if !s.HasToken() {
		fmt.Fprintln(out, "Admin token: not set")
		fmt.Fprintln(out, "Run 'agiai auth login' or set AGIAI_ADMIN_TOKEN to use admin commands")
		return
	}
	fmt.Fprintf(out, "Admin token: %s (%s)\n", maskToken(s.Token), s.TokenFrom)
}

func maskToken(token string) string {
	if len(token) < 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

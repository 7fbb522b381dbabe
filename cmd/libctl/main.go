package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type options struct {
	server    string
	token     string
	tokenFile string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "libctl",
		Short:         "Command line client for the library API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	home, _ := os.UserHomeDir()
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("LIBCTL_SERVER", "http://localhost:8080"), "API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("LIBCTL_TOKEN"), "Bearer token (defaults to the saved token)")
	root.PersistentFlags().StringVar(&opts.tokenFile, "token-file", filepath.Join(home, ".libctl", "token"), "Where login stores the token")

	root.AddCommand(newLoginCmd(opts), newBooksCmd(opts), newCacheCmd(opts))
	return root
}

func newLoginCmd(opts *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			password, err := readPassword(cmd.OutOrStdout(), cmd.InOrStdin(), "Password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			token, err := newClient(opts.server, "").login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := saveToken(opts.tokenFile, token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	return cmd
}

func newBooksCmd(opts *options) *cobra.Command {
	books := &cobra.Command{Use: "books", Short: "Browse and lend books"}

	var page int
	list := &cobra.Command{
		Use:   "list",
		Short: "List one catalog page",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authedClient(opts)
			if err != nil {
				return err
			}
			p, err := c.listBooks(cmd.Context(), page)
			if err != nil {
				return err
			}
			printPage(cmd.OutOrStdout(), p)
			return nil
		},
	}
	list.Flags().IntVar(&page, "page", 1, "Page number")

	borrow := &cobra.Command{
		Use:   "borrow <id>",
		Short: "Borrow a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authedClient(opts)
			if err != nil {
				return err
			}
			b, err := c.borrow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Borrowed %q\n", b.Title)
			return nil
		},
	}

	ret := &cobra.Command{
		Use:   "return <id>",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authedClient(opts)
			if err != nil {
				return err
			}
			b, err := c.giveBack(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Returned %q\n", b.Title)
			return nil
		},
	}

	books.AddCommand(list, borrow, ret)
	return books
}

func newCacheCmd(opts *options) *cobra.Command {
	cache := &cobra.Command{Use: "cache", Short: "Manage the catalog cache"}
	cache.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear the cache for all books pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authedClient(opts)
			if err != nil {
				return err
			}
			if err := c.clearCache(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Books cache cleared.")
			return nil
		},
	})
	return cache
}

func authedClient(opts *options) (*client, error) {
	token := opts.token
	if token == "" {
		b, err := os.ReadFile(opts.tokenFile)
		if err != nil {
			return nil, fmt.Errorf("not logged in: run 'libctl login' or pass --token")
		}
		token = strings.TrimSpace(string(b))
	}
	return newClient(opts.server, token), nil
}

func saveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}

// readPassword masks input on a terminal and falls back to a plain line read otherwise.
func readPassword(out io.Writer, in io.Reader, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func printPage(w io.Writer, p bookPage) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tSTATUS")
	for _, b := range p.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.Title, b.Author, b.Status)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "page %d of %d (%d books)\n", p.Page, p.LastPage, p.Total)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

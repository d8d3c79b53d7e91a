package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"socialfetch/pkg/auth"
	errs "socialfetch/pkg/errors"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored API secrets",
	Long: `Store API secrets in the system keychain, or in an encrypted file when no
keychain is available. Stored secrets are used only when the flag, the
environment and the config file leave them empty.

Services: ` + strings.Join(auth.ServiceNames(), ", "),
}

var authSetCmd = &cobra.Command{
	Use:       "set <service>",
	Short:     "Prompt for and store the secrets of a service",
	Args:      cobra.ExactArgs(1),
	ValidArgs: auth.ServiceNames(),
	RunE:      runAuthSet,
}

var authDeleteCmd = &cobra.Command{
	Use:   "delete <service>",
	Short: "Remove every stored secret of a service",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthDelete,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which secrets are available, masked",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd, authDeleteCmd, authStatusCmd)
}

func credentialManager() (*auth.Manager, error) {
	m, err := auth.NewManager()
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeFilesystem, err, "credential store unavailable")
	}
	return m, nil
}

func credentialError(err error) error {
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return errs.Wrap(errs.ErrorTypeValidation, err, "invalid credential")
	}
	return err
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	service := args[0]
	fields, ok := auth.Services[service]
	if !ok {
		return errs.New(errs.ErrorTypeValidation, "unknown service %q (want one of %s)", service, strings.Join(auth.ServiceNames(), ", "))
	}

	m, err := credentialManager()
	if err != nil {
		return err
	}

	p := printer()
	auth.ShowGuide(p.Writer(), service)

	in := bufio.NewReader(cmd.InOrStdin())
	stored := 0
	for _, f := range fields {
		secret, err := readSecret(p.Writer(), in, f.Prompt)
		if err != nil {
			return err
		}
		if secret == "" {
			p.Info(f.Name, "skipped")
			continue
		}

		if err := m.Store(&auth.Credential{Service: service, Name: f.Name, Secret: secret}); err != nil {
			return credentialError(err)
		}
		stored++
	}

	if stored == 0 {
		p.Warning("Nothing stored")
		return nil
	}
	p.Success(fmt.Sprintf("Stored %d secret(s) for %s", stored, service))
	return nil
}

// readSecret prompts on w and reads one line, without echo on a terminal
func readSecret(w io.Writer, in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprintf(w, "%s: ", prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(w)
		if err != nil {
			return "", errs.Wrap(errs.ErrorTypeValidation, err, "failed to read secret")
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errs.Wrap(errs.ErrorTypeValidation, err, "failed to read secret")
	}
	return strings.TrimSpace(line), nil
}

func runAuthDelete(cmd *cobra.Command, args []string) error {
	m, err := credentialManager()
	if err != nil {
		return err
	}

	n, err := m.DeleteService(args[0])
	if err != nil {
		return credentialError(err)
	}

	p := printer()
	if n == 0 {
		p.Info(args[0], "no stored secrets")
		return nil
	}
	p.Success(fmt.Sprintf("Removed %d secret(s) for %s", n, args[0]))
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	m, err := credentialManager()
	if err != nil {
		return err
	}

	p := printer()
	for _, service := range auth.ServiceNames() {
		for _, f := range auth.Services[service] {
			label := service + "/" + f.Name
			cred, err := m.Retrieve(service, f.Name)
			if err != nil {
				p.Info(label, p.Dim("not set ("+f.EnvVar+")"))
				continue
			}
			p.Info(label, auth.Sanitize(cred).Secret)
		}
	}
	return nil
}

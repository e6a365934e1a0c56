// Command choir is the command line client for the choir API. It keeps the
// onboarding draft on this machine until the user signs in and subscribes,
// then carries it over to the account.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/apiclient"
	"github.com/gichigi/choir/internal/config"
	"github.com/gichigi/choir/internal/logging"
	"github.com/gichigi/choir/internal/onboarding"
	"github.com/gichigi/choir/internal/session"
)

const banner = `
       _           _
   ___| |__   ___ (_)_ __
  / __| '_ \ / _ \| | '__|
 | (__| | | | (_) | | |
  \___|_| |_|\___/|_|_|
`

type cli struct {
	cfg   *config.ClientConfig
	log   *zap.Logger
	api   *apiclient.Client
	local *session.Local
	rec   *onboarding.Reconciler
	out   io.Writer
	in    *bufio.Reader
}

func newCLI(cfg *config.ClientConfig, log *zap.Logger) *cli {
	api := apiclient.New(cfg.APIURL, cfg.Token, log.Named("api"))
	local := session.NewLocal(session.NewFileStore(cfg.SessionPath()), log.Named("session"))
	nav := terminalNavigator{out: os.Stdout}
	return &cli{
		cfg:   cfg,
		log:   log,
		api:   api,
		local: local,
		rec:   onboarding.NewReconciler(api, local, nav, log.Named("onboarding")),
		out:   os.Stdout,
		in:    bufio.NewReader(os.Stdin),
	}
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadClientConfig()
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.Init(logging.Config{Level: cfg.LogLevel, Stderr: true})
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newCLI(cfg, logger)
	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "draft":
		err = c.cmdDraft(ctx, args)
	case "signup":
		err = c.cmdSignup(ctx, args)
	case "login":
		err = c.cmdLogin(ctx, args)
	case "logout":
		err = c.cmdLogout()
	case "generate":
		err = c.cmdGenerate(ctx)
	case "reconcile":
		err = c.cmdReconcile(ctx)
	case "me":
		err = c.cmdMe(ctx)
	case "content":
		err = c.cmdContent(ctx, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		if onboarding.IsRetryable(err) {
			fmt.Fprintln(os.Stderr, "The server could not be reached or is busy. Your local draft is kept; run the command again.")
		}
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: choir <command> [args]")
	fmt.Println()
	yellow.Println("Onboarding:")
	fmt.Println("  draft show                          Show the onboarding draft kept on this machine")
	fmt.Println("  draft set <field>=<value>...        Set draft fields (" + strings.Join(draftFieldNames, ", ") + ")")
	fmt.Println("  draft import <file>                 Add the text of a brand document to the draft")
	fmt.Println("  draft preview                       Preview a voice for the draft and keep it for generate")
	fmt.Println("  draft clear                         Forget the local draft")
	fmt.Println("  generate                            Generate your brand voice from the draft")
	fmt.Println("  reconcile                           Carry a pending draft over to your account")
	fmt.Println()
	yellow.Println("Account:")
	fmt.Println("  signup --email <email> [--name <name>] [--password <pw>]")
	fmt.Println("  login --email <email> [--password <pw>]")
	fmt.Println("  logout")
	fmt.Println("  me                                  Show your account and brand voice")
	fmt.Println()
	yellow.Println("Content library:")
	fmt.Println("  content list [--type <t>] [--tag <tag>]... [--q <text>] [--limit <n>] [--cursor <c>]")
	fmt.Println("  content delete <id>")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  CHOIR_API_URL     API base URL (default: http://localhost:8080)")
	fmt.Println("  CHOIR_HOME        Local state directory (default: $XDG_CONFIG_HOME/choir)")
	fmt.Println("  CHOIR_TOKEN       Overrides the stored sign-in token")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  choir draft set businessName=Acme yearFounded=2020 'businessDescription=We roast coffee.'")
	fmt.Println("  choir generate")
	fmt.Println("  choir content list --type blog --tag launch --limit 5")
	fmt.Println()
}

// terminalNavigator prints where the user should go next.
type terminalNavigator struct {
	out io.Writer
}

func (n terminalNavigator) Navigate(to onboarding.Destination) {
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)
	switch to {
	case onboarding.SignIn:
		yellow.Fprintln(n.out, "Sign in to continue: choir login --email <you@example.com> (or choir signup)")
		fmt.Fprintln(n.out, "Your draft is kept on this machine and carried over once you are signed in.")
	case onboarding.Billing:
		yellow.Fprintln(n.out, "An active subscription is required. Subscribe, then run: choir generate")
	case onboarding.Dashboard:
		green.Fprintln(n.out, "Your onboarding answers are saved to your account.")
	}
}

func (n terminalNavigator) Warn(message string) {
	color.New(color.FgYellow).Fprintf(n.out, "Warning: %s\n", message)
}

func (c *cli) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

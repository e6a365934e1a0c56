package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/onboarding"
	"github.com/gichigi/choir/internal/session"
	"github.com/gichigi/choir/internal/validation"
)

var draftFieldNames = []string{
	"businessName", "yearFounded", "businessDescription", "website",
	"targetAudience", "companyValues", "additionalInfo",
}

func draftField(f *models.DraftFields, name string) (*string, bool) {
	switch strings.ToLower(name) {
	case "businessname":
		return &f.BusinessName, true
	case "yearfounded":
		return &f.YearFounded, true
	case "businessdescription":
		return &f.BusinessDescription, true
	case "website":
		return &f.Website, true
	case "targetaudience":
		return &f.TargetAudience, true
	case "companyvalues":
		return &f.CompanyValues, true
	case "additionalinfo":
		return &f.AdditionalInfo, true
	}
	return nil, false
}

// applyAssignments sets field=value pairs on f. An empty value clears the field.
func applyAssignments(f *models.DraftFields, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: draft set <field>=<value>...")
	}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("%w: expected <field>=<value>, got %q", core.ErrValidation, arg)
		}
		field, ok := draftField(f, strings.TrimSpace(name))
		if !ok {
			return fmt.Errorf("%w: unknown field %q (one of %s)", core.ErrValidation, name, strings.Join(draftFieldNames, ", "))
		}
		*field = strings.TrimSpace(value)
	}
	return validation.ValidateStruct(*f)
}

func (c *cli) cmdDraft(ctx context.Context, args []string) error {
	subcmd := "show"
	if len(args) > 0 {
		subcmd = args[0]
		args = args[1:]
	}

	switch subcmd {
	case "show":
		return c.showDraft()
	case "set":
		d := c.local.LoadDraft()
		fields := d.DraftFields
		if err := applyAssignments(&fields, args); err != nil {
			return err
		}
		return c.saveDraft(ctx, withFields(d, fields))
	case "preview":
		return c.previewVoice(ctx)
	case "import":
		if len(args) != 1 {
			return fmt.Errorf("usage: draft import <file>")
		}
		return c.importDocument(ctx, args[0])
	case "clear":
		if err := c.local.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Local draft cleared.")
		return nil
	default:
		return fmt.Errorf("unknown draft subcommand: %s", subcmd)
	}
}

// withFields returns d with fields applied. A cached voice preview no longer
// matches changed answers, so it is dropped.
func withFields(d session.Draft, fields models.DraftFields) session.Draft {
	if fields != d.DraftFields {
		d.BrandVoice = nil
	}
	d.DraftFields = fields
	return d
}

// previewVoice shows a voice for the local draft and keeps it on the draft,
// so the next generate stores it instead of generating again.
func (c *cli) previewVoice(ctx context.Context) error {
	res, err := c.rec.Preview(ctx)
	if err != nil {
		return err
	}
	printProfile(c.out, res.Voice)
	if !res.Fallback {
		fmt.Fprintln(c.out, "Kept on this machine. Run choir generate to save it to your account.")
	}
	return nil
}

// saveDraft caches d locally, then mirrors it to the server under the session id.
// A failed mirror is reported but not fatal: the local copy is what gets carried over.
func (c *cli) saveDraft(ctx context.Context, d session.Draft) error {
	sessionID, err := c.local.GetOrCreateSessionID()
	if err != nil {
		return err
	}
	if err := c.local.SaveDraft(d); err != nil {
		return err
	}
	if _, err := c.api.SaveSessionDraft(ctx, sessionID, d.DraftFields); err != nil {
		c.log.Warn("session draft sync failed", zap.String("session_id", sessionID), zap.Error(err))
		color.Yellow("Saved on this machine only (server sync failed: %v)\n", err)
		return nil
	}
	color.Green("Draft saved.\n")
	return nil
}

func (c *cli) showDraft() error {
	st := c.local.State()
	cyan := color.New(color.FgCyan)

	fmt.Fprintln(c.out)
	cyan.Fprintln(c.out, "  Onboarding draft")
	cyan.Fprintln(c.out, "  ----------------")
	if st.Draft == nil {
		fmt.Fprintln(c.out, "  (empty) start with: choir draft set businessName=<name>")
		fmt.Fprintln(c.out)
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	for _, name := range draftFieldNames {
		value, _ := draftField(&st.Draft.DraftFields, name)
		shown := truncate(strings.ReplaceAll(*value, "\n", " "), 70)
		if shown == "" {
			shown = "-"
		}
		fmt.Fprintf(w, "  %s\t%s\n", name, shown)
	}
	_ = w.Flush()

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "  Session:        %s\n", orDash(st.SessionID))
	if st.Pending != "" {
		color.New(color.FgYellow).Fprintf(c.out, "  Pending:        waiting to be carried over to your account\n")
	}
	if st.Draft.BrandVoice != nil {
		fmt.Fprintf(c.out, "  Cached voice:   %s\n", st.Draft.BrandVoice.CompanyName)
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *cli) importDocument(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := c.api.ImportDocument(ctx, filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return fmt.Errorf("%w: no text found in %s", core.ErrValidation, path)
	}

	d := c.local.LoadDraft()
	fields := d.DraftFields
	if fields.AdditionalInfo != "" {
		fields.AdditionalInfo += "\n\n"
	}
	fields.AdditionalInfo += doc.Text
	if err := validation.ValidateStruct(fields); err != nil {
		return fmt.Errorf("imported text does not fit the draft: %w", err)
	}
	fmt.Fprintf(c.out, "Imported %d characters from %s (%s).\n", len(doc.Text), doc.FileName, doc.ContentType)
	return c.saveDraft(ctx, withFields(d, fields))
}

type credentials struct {
	email, password, name string
}

func (c *cli) parseCredentials(args []string, usage string) (credentials, error) {
	var cred credentials
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--email", "-e":
			if i+1 < len(args) {
				cred.email = args[i+1]
				i++
			}
		case "--password", "-p":
			if i+1 < len(args) {
				cred.password = args[i+1]
				i++
			}
		case "--name", "-n":
			if i+1 < len(args) {
				cred.name = args[i+1]
				i++
			}
		}
	}
	if cred.email == "" {
		return cred, fmt.Errorf("usage: %s", usage)
	}
	if cred.password == "" {
		pw, err := c.prompt("Password: ")
		if err != nil {
			return cred, err
		}
		cred.password = pw
	}
	return cred, nil
}

func (c *cli) cmdSignup(ctx context.Context, args []string) error {
	cred, err := c.parseCredentials(args, "signup --email <email> [--name <name>] [--password <pw>]")
	if err != nil {
		return err
	}
	res, err := c.api.Signup(ctx, cred.email, cred.password, cred.name)
	if err != nil {
		return err
	}
	if err := c.cfg.SaveToken(res.Token); err != nil {
		return err
	}
	color.Green("Signed up as %s\n", res.Email)
	return c.afterSignIn(ctx)
}

func (c *cli) cmdLogin(ctx context.Context, args []string) error {
	cred, err := c.parseCredentials(args, "login --email <email> [--password <pw>]")
	if err != nil {
		return err
	}
	res, err := c.api.Login(ctx, cred.email, cred.password)
	if err != nil {
		return err
	}
	if err := c.cfg.SaveToken(res.Token); err != nil {
		return err
	}
	color.Green("Signed in as %s\n", res.Email)
	return c.afterSignIn(ctx)
}

// afterSignIn resumes an onboarding that was interrupted by the sign-in.
func (c *cli) afterSignIn(ctx context.Context) error {
	phase, err := c.rec.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("carry over onboarding draft: %w", err)
	}
	if phase == onboarding.VoiceGenerated {
		return c.printVoice(ctx)
	}
	return nil
}

func (c *cli) cmdLogout() error {
	if err := c.cfg.ClearToken(); err != nil {
		return err
	}
	c.api.SetToken("")
	fmt.Fprintln(c.out, "Signed out. Your local draft is kept.")
	return nil
}

func (c *cli) cmdGenerate(ctx context.Context) error {
	if !c.local.HasDraft() {
		id, err := c.api.Identity(ctx)
		if err != nil {
			return err
		}
		if !id.Authenticated() {
			return fmt.Errorf("no onboarding draft yet; start with: choir draft set businessName=<name>")
		}
		// already onboarded: rebuild the voice from the account's draft
		_, outcome, err := c.api.GenerateVoice(ctx)
		if err != nil {
			return err
		}
		if outcome.Fallback {
			terminalNavigator{out: c.out}.Warn(outcome.Warning)
		}
		return c.printVoice(ctx)
	}

	d := c.local.LoadDraft()
	if d.IsEmpty() {
		return fmt.Errorf("the draft is empty; start with: choir draft set businessName=<name>")
	}
	if sessionID, err := c.local.GetOrCreateSessionID(); err == nil {
		if _, err := c.api.SaveSessionDraft(ctx, sessionID, d.DraftFields); err != nil {
			c.log.Warn("session draft sync failed", zap.Error(err))
		}
	}

	phase, err := c.rec.RequestGeneration(ctx)
	if err != nil {
		return err
	}
	if phase == onboarding.VoiceGenerated {
		return c.printVoice(ctx)
	}
	return nil
}

func (c *cli) cmdReconcile(ctx context.Context) error {
	phase, err := c.rec.Reconcile(ctx)
	if err != nil {
		return err
	}
	switch phase {
	case onboarding.Drafting:
		fmt.Fprintln(c.out, "Nothing pending.")
	case onboarding.VoiceGenerated:
		return c.printVoice(ctx)
	}
	return nil
}

func (c *cli) cmdMe(ctx context.Context) error {
	me, err := c.api.Me(ctx)
	if errors.Is(err, core.ErrNotAuthenticated) {
		return fmt.Errorf("not signed in; run: choir login --email <you@example.com>")
	}
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Fprintln(c.out)
	cyan.Fprintln(c.out, "  Account")
	cyan.Fprintln(c.out, "  -------")
	fmt.Fprintf(c.out, "  ID:             %s\n", me.AccountID)
	fmt.Fprintf(c.out, "  Email:          %s\n", me.Email)
	fmt.Fprintf(c.out, "  Name:           %s\n", orDash(me.Name))
	if me.Entitled {
		color.New(color.FgGreen).Fprintf(c.out, "  Subscription:   active\n")
	} else {
		color.New(color.FgYellow).Fprintf(c.out, "  Subscription:   none\n")
	}
	if c.local.Pending() != "" {
		color.New(color.FgYellow).Fprintf(c.out, "  Pending draft:  run choir reconcile\n")
	}
	return c.printVoice(ctx)
}

func (c *cli) printVoice(ctx context.Context) error {
	v, err := c.api.GetBrandVoice(ctx)
	if err != nil {
		return err
	}
	if v == nil {
		printVoiceHeader(c.out)
		fmt.Fprintln(c.out, "  (none yet) run: choir generate")
		fmt.Fprintln(c.out)
		return nil
	}
	printProfile(c.out, models.VoiceProfile{CompanyName: v.Name, BusinessSummary: v.BusinessSummary, Pillars: v.Pillars})
	return nil
}

func printVoiceHeader(out io.Writer) {
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(out)
	cyan.Fprintln(out, "  Brand voice")
	cyan.Fprintln(out, "  -----------")
}

func printProfile(out io.Writer, v models.VoiceProfile) {
	printVoiceHeader(out)
	fmt.Fprintf(out, "  Name:           %s\n", v.CompanyName)
	fmt.Fprintf(out, "  Summary:        %s\n", truncate(v.BusinessSummary, 90))
	for i, p := range v.Pillars {
		fmt.Fprintf(out, "  Pillar %d:       %s\n", i+1, p.Name)
		if len(p.WhatItMeans) > 0 {
			fmt.Fprintf(out, "                  %s\n", truncate(p.WhatItMeans[0], 80))
		}
	}
	fmt.Fprintln(out)
}

// parseContentQuery reads the list flags. Tags may repeat or be comma separated.
func parseContentQuery(args []string) (models.ContentQuery, error) {
	var q models.ContentQuery
	for i := 0; i < len(args); i++ {
		if i+1 >= len(args) {
			return q, fmt.Errorf("%w: %s needs a value", core.ErrValidation, args[i])
		}
		value := args[i+1]
		switch args[i] {
		case "--type", "-t":
			q.Type = value
		case "--tag":
			for _, t := range strings.Split(value, ",") {
				if t = strings.TrimSpace(t); t != "" {
					q.Tags = append(q.Tags, t)
				}
			}
		case "--q", "-q", "--search":
			q.SearchQuery = value
		case "--limit", "-l":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return q, fmt.Errorf("%w: limit must be a positive number", core.ErrValidation)
			}
			q.Limit = n
		case "--cursor", "-c":
			q.Cursor = value
		default:
			return q, fmt.Errorf("%w: unknown flag %s", core.ErrValidation, args[i])
		}
		i++
	}
	return q, nil
}

func (c *cli) cmdContent(ctx context.Context, args []string) error {
	subcmd := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		subcmd = args[0]
		args = args[1:]
	}

	switch subcmd {
	case "list":
		q, err := parseContentQuery(args)
		if err != nil {
			return err
		}
		return c.listContent(ctx, q)
	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("usage: content delete <id>")
		}
		if err := c.api.DeleteContent(ctx, args[0]); err != nil {
			return err
		}
		color.Green("Deleted %s\n", args[0])
		return nil
	default:
		return fmt.Errorf("unknown content subcommand: %s", subcmd)
	}
}

func (c *cli) listContent(ctx context.Context, q models.ContentQuery) error {
	page, err := c.api.ListContent(ctx, q)
	if err != nil {
		return err
	}
	if len(page.Items) == 0 {
		fmt.Fprintln(c.out, "No content found.")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tTYPE\tTITLE\tTAGS\tCREATED")
	fmt.Fprintln(w, "  --\t----\t-----\t----\t-------")
	for _, it := range page.Items {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			it.ID,
			it.Type,
			truncate(it.Title, 40),
			truncate(strings.Join(it.Tags, ","), 24),
			it.CreatedAt.Local().Format("Jan 02 15:04"))
	}
	_ = w.Flush()

	if page.HasMore && page.NextCursor != nil {
		fmt.Fprintln(c.out)
		fmt.Fprintf(c.out, "More results: repeat the command with --cursor %s\n", *page.NextCursor)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/GadCoder/BikeRoutes/internal/domain"
	"github.com/GadCoder/BikeRoutes/internal/geometry"
	"github.com/GadCoder/BikeRoutes/internal/history"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"register":   cmdRegister,
	"login":      cmdLogin,
	"logout":     cmdLogout,
	"whoami":     cmdWhoami,
	"routes":     cmdRoutes,
	"show":       cmdShow,
	"delete":     cmdDelete,
	"import-gpx": cmdImportGPX,
}

// newFlagSet returns a flag set that reports parse errors on a.stderr.
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) parse(fs *flag.FlagSet, args []string, positional int) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != positional {
		return errUsage
	}
	return nil
}

// credentials parses -email and -password, reading the password from stdin
// when the flag is absent.
func (a *app) credentials(name string, args []string) (email, password string, err error) {
	fs := a.newFlagSet(name)
	fs.StringVar(&email, "email", "", "account email")
	fs.StringVar(&password, "password", "", "account password")
	if err := a.parse(fs, args, 0); err != nil {
		return "", "", err
	}
	if strings.TrimSpace(email) == "" {
		return "", "", errUsage
	}
	if password == "" {
		sc := bufio.NewScanner(a.stdin)
		if sc.Scan() {
			password = strings.TrimRight(sc.Text(), "\r")
		}
		if err := sc.Err(); err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
	}
	return email, password, nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	email, password, err := a.credentials("register", args)
	if err != nil {
		return err
	}
	s, err := a.session.Register(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Registered and signed in as %s\n", s.User.Email)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	email, password, err := a.credentials("login", args)
	if err != nil {
		return err
	}
	s, err := a.session.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Signed in as %s\n", s.User.Email)
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if err := a.parse(a.newFlagSet("logout"), args, 0); err != nil {
		return err
	}
	a.session.SignOut(ctx)
	fmt.Fprintln(a.stdout, "Signed out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, args []string) error {
	if err := a.parse(a.newFlagSet("whoami"), args, 0); err != nil {
		return err
	}
	s, err := a.session.Load(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("not signed in: %w", domain.ErrUnauthenticated)
	}
	fmt.Fprintf(a.stdout, "%s (%s)\n", s.User.Email, s.User.ID)
	return nil
}

func cmdRoutes(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("routes")
	query := fs.String("q", "", "filter by title")
	if err := a.parse(fs, args, 0); err != nil {
		return err
	}

	listing, saveErr := a.routes.Activate(ctx, *query)
	if listing.Offline {
		fmt.Fprintf(a.stderr, "offline: showing cached routes (%v)\n", listing.Cause)
	}
	if saveErr != nil {
		a.logger.WarnContext(ctx, "route cache not saved", "error", saveErr)
	}
	if len(listing.Routes) == 0 {
		fmt.Fprintln(a.stdout, "No routes")
		return nil
	}

	now := time.Now()
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDISTANCE\tMARKERS\tUPDATED")
	for _, e := range listing.Routes {
		r := e.Route
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			r.ID,
			r.Title(),
			geometry.FormatDistanceKm(geometry.RouteDistanceKm(r)*1000),
			len(r.Properties.Markers),
			geometry.FormatRelativeTime(e.SortKey(), now),
		)
	}
	return tw.Flush()
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("show")
	if err := a.parse(fs, args, 1); err != nil {
		return err
	}

	r, offline, err := a.routes.Get(ctx, fs.Arg(0))
	if err != nil && r.ID == "" {
		return err
	}
	if err != nil {
		a.logger.WarnContext(ctx, "route cache not updated", "error", err)
	}
	if offline {
		fmt.Fprintln(a.stderr, "offline: showing cached copy")
	}

	vertices := 0
	if line, ok := r.Geometry.AsLineString(); ok {
		vertices = geometry.VertexCount(line.Coordinates)
	}
	fmt.Fprintln(a.stdout, r.Title())
	fmt.Fprintf(a.stdout, "id:       %s\n", r.ID)
	fmt.Fprintf(a.stdout, "distance: %s (%s)\n",
		geometry.FormatDistanceKm(geometry.RouteDistanceKm(r)*1000), geometry.FormatVertices(vertices))
	if d := r.Properties.Description; d != "" {
		fmt.Fprintf(a.stdout, "about:    %s\n", d)
	}
	if r.Properties.IsPublic {
		fmt.Fprintln(a.stdout, "public:   yes")
		if tok := r.Properties.ShareToken; tok != "" {
			fmt.Fprintf(a.stdout, "share:    %s\n", tok)
		}
	}
	if len(r.Properties.Markers) == 0 {
		return nil
	}
	fmt.Fprintln(a.stdout, "markers:")
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	for _, m := range r.Properties.Markers {
		pos, _ := m.Geometry.AsPoint()
		order := "-"
		if m.Properties.OrderIndex != nil {
			order = fmt.Sprint(*m.Properties.OrderIndex)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%.5f,%.5f\n", order, m.Properties.Label, m.Properties.IconType, pos.Lon(), pos.Lat())
	}
	return tw.Flush()
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("delete")
	if err := a.parse(fs, args, 1); err != nil {
		return err
	}
	id := fs.Arg(0)
	if err := a.routes.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deleted %s\n", id)
	return nil
}

func cmdImportGPX(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("import-gpx")
	title := fs.String("title", "", "route title")
	description := fs.String("description", "", "route description")
	public := fs.Bool("public", false, "publish the route")
	if err := a.parse(fs, args, 1); err != nil {
		return err
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()
	line, err := history.FromGPX(f)
	if err != nil {
		return err
	}

	state := a.editor.New()
	state.Title = *title
	if state.Title == "" {
		state.Title = strings.TrimSuffix(filepath.Base(f.Name()), filepath.Ext(f.Name()))
	}
	state.Description = *description
	state.IsPublic = *public
	state.History = state.History.Push(line)

	saved, _, err := a.editor.Save(ctx, state)
	if saved.ID == "" {
		return err
	}
	if err != nil {
		a.logger.WarnContext(ctx, "route cache not updated", "error", err)
	}
	fmt.Fprintf(a.stdout, "Created %s (%s, %s)\n", saved.ID,
		geometry.FormatDistanceKm(geometry.RouteDistanceKm(saved)*1000), geometry.FormatVertices(line.Len()))
	return nil
}

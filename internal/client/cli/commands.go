package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sendit/internal/client/models"
	"github.com/dmitrijs2005/sendit/internal/client/syncfield"
	"github.com/dmitrijs2005/sendit/internal/common"
)

var errAlreadySignedIn = errors.New("already signed in, sign out first")

func (a *App) SignIn(ctx context.Context) error {
	if a.isSignedIn() {
		return errAlreadySignedIn
	}

	sess, err := a.sessions.SignIn(ctx, func(url string) {
		fmt.Fprintf(a.out, "Open this link in your browser to sign in:\n  %s\nWaiting for the sign-in to finish...\n", url)
	})
	if errors.Is(err, common.ErrSignInExpired) {
		return fmt.Errorf("%w, type 'signin' to try again", err)
	}
	if err != nil {
		return err
	}

	return a.begin(ctx, sess)
}

// SignOut drops a pending text edit, stops the controllers and forgets the
// saved session.
func (a *App) SignOut(ctx context.Context) error {
	if !a.isSignedIn() {
		return syncfield.ErrNoIdentity
	}

	err := a.sessions.SignOut(ctx)

	a.mu.Lock()
	a.text, a.files = nil, nil
	a.lastSummary = ""
	a.mu.Unlock()
	a.out.Progress("")

	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *App) WhoAmI(context.Context) error {
	sess := a.sessions.Current()
	if !sess.Valid() {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}

	fmt.Fprintln(a.out, displayName(sess))
	fmt.Fprintln(a.out, "  uid:", sess.UID)
	if sess.PhotoURL != "" {
		fmt.Fprintln(a.out, "  photo:", sess.PhotoURL)
	}
	return nil
}

func (a *App) ShowText(context.Context) error {
	text, _ := a.controllers()
	if text == nil {
		return syncfield.ErrNoIdentity
	}

	switch {
	case !text.Loaded():
		fmt.Fprintln(a.out, "(loading...)")
	case text.Text() == "":
		fmt.Fprintln(a.out, "(empty)")
	default:
		fmt.Fprintln(a.out, text.Text())
	}
	if text.Pending() {
		fmt.Fprintln(a.out, "(not saved yet)")
	}
	return nil
}

func (a *App) Edit(_ context.Context, s string) error {
	text, _ := a.controllers()
	if text == nil {
		return syncfield.ErrNoIdentity
	}
	return text.Edit(s)
}

func (a *App) ListFiles(context.Context) error {
	_, files := a.controllers()
	if files == nil {
		return syncfield.ErrNoIdentity
	}

	if !files.Loaded() {
		fmt.Fprintln(a.out, "(loading...)")
		return nil
	}

	views := files.Files()
	if len(views) == 0 {
		fmt.Fprintln(a.out, "No files yet. Use 'drop' or 'add' to upload.")
		return nil
	}
	for _, v := range views {
		fmt.Fprintln(a.out, formatFile(v))
	}
	return nil
}

// Drop replaces every uploaded file with the given ones.
func (a *App) Drop(ctx context.Context, paths []string) error {
	return a.upload(ctx, paths, syncfield.Overwrite)
}

// Add uploads the given files next to the existing ones.
func (a *App) Add(ctx context.Context, paths []string) error {
	return a.upload(ctx, paths, syncfield.Add)
}

// upload opens every path before anything is sent, then runs the batch in
// the background so the prompt stays usable. The mode is fixed here; batches
// started back to back do not share it.
func (a *App) upload(ctx context.Context, paths []string, mode syncfield.Mode) error {
	_, files := a.controllers()
	if files == nil {
		return syncfield.ErrNoIdentity
	}

	locals := make([]models.LocalFile, 0, len(paths))
	for _, p := range paths {
		f, err := a.openFile(p)
		if err != nil {
			return err
		}
		locals = append(locals, f)
	}

	fmt.Fprintf(a.out, "Uploading %d file(s) (%s)...\n", len(locals), mode)

	a.uploads.Add(1)
	a.inFlight.Add(1)
	go func() {
		defer a.uploads.Done()
		defer a.inFlight.Add(-1)

		err := files.Upload(ctx, locals, mode)
		if errors.Is(err, syncfield.ErrNoIdentity) {
			a.out.Notice("upload stopped: signed out")
			return
		}
		if err != nil {
			a.out.Notice(fmt.Sprintf("upload finished with errors: %v", err))
			return
		}
		a.out.Notice(fmt.Sprintf("uploaded %d file(s)", len(locals)))
	}()

	return nil
}

func (a *App) Clear(ctx context.Context) error {
	_, files := a.controllers()
	if files == nil {
		return syncfield.ErrNoIdentity
	}

	if err := files.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "All files deleted")
	return nil
}

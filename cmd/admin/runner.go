package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"songmail/internal/app"
	"songmail/internal/config"
	"songmail/internal/domain"
	"songmail/internal/modules/share"
	"songmail/internal/repository"

	"github.com/urfave/cli/v3"
)

// Runner owns the container shared by every subcommand of one invocation.
type Runner struct {
	out       io.Writer
	container *app.Container
	loadCfg   func() (*config.Config, error)
}

func NewRunner(out io.Writer) *Runner {
	return &Runner{out: out, loadCfg: config.Load}
}

func (r *Runner) app(ctx context.Context) (*app.Container, error) {
	if r.container != nil {
		return r.container, nil
	}

	cfg, err := r.loadCfg()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.Start(ctx)
	r.container = c
	return c, nil
}

// Close waits for queued notifications and closes the stores.
func (r *Runner) Close() {
	if r.container != nil {
		_ = r.container.Close()
		r.container = nil
	}
}

func (r *Runner) println(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "migrate",
			Usage:  "Create or update the database schema",
			Action: r.Migrate,
		},
		{
			Name:  "songs",
			Usage: "Inspect and edit the song catalog",
			Commands: []*cli.Command{
				{
					Name:  "list",
					Usage: "List saved songs",
					Flags: []cli.Flag{
						&cli.IntFlag{Name: "limit", Value: 20, Usage: "Page size"},
						&cli.IntFlag{Name: "offset", Usage: "Rows to skip"},
					},
					Action: r.ListSongs,
				},
				{
					Name:  "lookup",
					Usage: "Find a song by its exact title",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "title", Required: true},
					},
					Action: r.LookupSong,
				},
				{
					Name:  "save",
					Usage: "Save a song, creating its artist and album if needed",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "title", Required: true},
						&cli.StringFlag{Name: "artist", Required: true},
						&cli.StringFlag{Name: "album"},
					},
					Action: r.SaveSong,
				},
			},
		},
		{
			Name:  "albums",
			Usage: "Inspect albums",
			Commands: []*cli.Command{
				{
					Name:  "artists",
					Usage: "List the artists credited on an album",
					Flags: []cli.Flag{
						&cli.IntFlag{Name: "id", Required: true, Usage: "Album id"},
					},
					Action: r.ListAlbumArtists,
				},
			},
		},
		{
			Name:  "friends",
			Usage: "Inspect friend lists",
			Commands: []*cli.Command{
				{
					Name:  "list",
					Usage: "List a user's friends",
					Flags: []cli.Flag{
						&cli.IntFlag{Name: "user", Required: true, Usage: "Owner user id"},
					},
					Action: r.ListFriends,
				},
			},
		},
		{
			Name:  "share",
			Usage: "Search, save and email a song on behalf of a user",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "user", Required: true, Usage: "Acting user id"},
				&cli.StringFlag{Name: "username", Value: "admin", Usage: "Name shown as the sender"},
				&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Required: true},
				&cli.IntFlag{Name: "pick", Value: 1, Usage: "Which search result to share (1-based)"},
				&cli.IntFlag{Name: "friend", Usage: "Saved friend id"},
				&cli.StringFlag{Name: "name", Usage: "New friend name (with --email)"},
				&cli.StringFlag{Name: "email", Usage: "Recipient email"},
			},
			Action: r.Share,
		},
	}
}

func (r *Runner) Migrate(ctx context.Context, _ *cli.Command) error {
	c, err := r.app(ctx)
	if err != nil {
		return err
	}
	if err := repository.AutoMigrate(c.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	r.println("✓ schema up to date")
	return nil
}

func formatSong(s *domain.Song) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %q", s.ID, s.Title)
	if s.Artist != nil {
		fmt.Fprintf(&b, " by %s", s.Artist.Name)
	}
	if s.Album != nil {
		fmt.Fprintf(&b, " (%s)", s.Album.Name)
	}
	return b.String()
}

func (r *Runner) ListSongs(ctx context.Context, cmd *cli.Command) error {
	c, err := r.app(ctx)
	if err != nil {
		return err
	}

	page, err := c.CatalogService.ListSongs(ctx, int(cmd.Int("limit")), int(cmd.Int("offset")))
	if err != nil {
		return err
	}
	for i := range page.Songs {
		r.println(formatSong(&page.Songs[i]))
	}
	r.println("%d of %d songs", len(page.Songs), page.Total)
	return nil
}

func (r *Runner) LookupSong(ctx context.Context, cmd *cli.Command) error {
	c, err := r.app(ctx)
	if err != nil {
		return err
	}

	song, err := c.CatalogService.FindSongByTitle(ctx, cmd.String("title"))
	if err != nil {
		return err
	}
	r.println(formatSong(song))
	return nil
}

func (r *Runner) SaveSong(ctx context.Context, cmd *cli.Command) error {
	c, err := r.app(ctx)
	if err != nil {
		return err
	}

	song, err := c.CatalogService.FindOrCreateSong(ctx, cmd.String("title"), cmd.String("artist"), cmd.String("album"))
	if err != nil {
		return err
	}
	r.println("✓ saved %s", formatSong(song))
	return nil
}

func (r *Runner) ListAlbumArtists(ctx context.Context, cmd *cli.Command) error {
	c, err := r.app(ctx)
	if err != nil {
		return err
	}

	artists, err := c.CatalogService.ListAlbumArtists(ctx, int64(cmd.Int("id")))
	if err != nil {
		return err
	}
	for _, a := range artists {
		r.println("#%d %s", a.ID, a.Name)
	}
	return nil
}

func (r *Runner) ListFriends(ctx context.Context, cmd *cli.Command) error {
	c, err := r.app(ctx)
	if err != nil {
		return err
	}

	friends, err := c.FriendService.ListFriends(ctx, int64(cmd.Int("user")))
	if err != nil {
		return err
	}
	for _, f := range friends {
		r.println("#%d %s <%s>", f.ID, f.Name, f.Email)
	}
	r.println("%d friends", len(friends))
	return nil
}

// Share drives one full workflow session and prints each step.
func (r *Runner) Share(ctx context.Context, cmd *cli.Command) error {
	c, err := r.app(ctx)
	if err != nil {
		return err
	}

	session := c.ShareService.NewSession(share.Actor{UserID: int64(cmd.Int("user")), Username: cmd.String("username")})

	candidates, err := session.Search(ctx, cmd.String("query"), 0)
	if err != nil {
		return err
	}
	for i, cand := range candidates {
		r.println("%2d. %s - %s (%s)", i+1, cand.Title, cand.Artist, cand.Album)
	}

	if _, err := session.Select(ctx, int(cmd.Int("pick"))-1); err != nil {
		return err
	}
	song, err := session.Confirm(ctx)
	if err != nil {
		return err
	}
	r.println("✓ saved %s", formatSong(song))

	recipient, err := session.ChooseRecipient(ctx, share.RecipientInput{
		FriendID: int64(cmd.Int("friend")),
		Name:     cmd.String("name"),
		Email:    cmd.String("email"),
	})
	if err != nil {
		return err
	}

	if _, err := session.Dispatch(ctx); err != nil {
		return err
	}
	r.println("✓ notification queued for %s (%s)", recipient.Email, session.Stage())
	return nil
}

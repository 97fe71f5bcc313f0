// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// authCommand handles identity operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Required: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:    "google",
				Aliases: []string{"federated"},
				Usage:   "Sign in with Google via the browser",
				Action:  r.AuthGoogle,
			},
			{
				Name:  "signup",
				Usage: "Create a new account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Display name",
					},
					&cli.StringFlag{
						Name:  "avatar",
						Usage: "Avatar image URL",
					},
				},
				Action: r.AuthSignup,
			},
			{
				Name:   "status",
				Usage:  "Show the current authentication state",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and clear the persisted session",
				Action: r.AuthLogout,
			},
		},
	}
}

// booksCommand handles catalog operations
func booksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "books",
		Aliases: []string{"book"},
		Usage:   "Book catalog operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List books in the catalog",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "mine",
						Usage: "Only books listed by the signed-in user",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.BooksList,
			},
			{
				Name:  "latest",
				Usage: "Show the most recently added books",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.BooksLatest,
			},
			{
				Name:  "get",
				Usage: "Show a single book",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.BooksGet,
			},
			{
				Name:  "add",
				Usage: "Add a book to the catalog",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Usage:    "Book title",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "author",
						Usage:    "Book author",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "category",
						Usage:    "Book category",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Book description",
					},
					&cli.FloatFlag{
						Name:  "price",
						Usage: "Price in dollars",
					},
					&cli.FloatFlag{
						Name:  "rating",
						Usage: "Rating between 0 and 5",
					},
					&cli.StringFlag{
						Name:  "cover",
						Usage: "Path to a cover image to upload",
					},
				},
				Action: r.BooksAdd,
			},
			{
				Name:  "update",
				Usage: "Update a book you own",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Book title"},
					&cli.StringFlag{Name: "author", Usage: "Book author"},
					&cli.StringFlag{Name: "category", Usage: "Book category"},
					&cli.StringFlag{Name: "description", Usage: "Book description"},
					&cli.FloatFlag{Name: "price", Usage: "Price in dollars", Value: -1},
					&cli.FloatFlag{Name: "rating", Usage: "Rating between 0 and 5", Value: -1},
				},
				Action: r.BooksUpdate,
			},
			{
				Name:  "delete",
				Usage: "Delete a book you own",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.BooksDelete,
			},
			{
				Name:  "export",
				Usage: "Export the catalog to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, json",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output base path",
						Value:   "catalog",
					},
				},
				Action: r.BooksExport,
			},
			{
				Name:   "history",
				Usage:  "Show recently viewed books",
				Action: r.BooksHistory,
			},
		},
	}
}

// commentsCommand handles comment thread operations
func commentsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "comments",
		Aliases: []string{"comment"},
		Usage:   "Book comment operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show a book's comment thread",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "book"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.CommentsList,
			},
			{
				Name:  "post",
				Usage: "Post a comment to a book's thread",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "book"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "text",
						Aliases:  []string{"t"},
						Usage:    "Comment text",
						Required: true,
					},
				},
				Action: r.CommentsPost,
			},
			{
				Name:  "watch",
				Usage: "Stream a book's comment thread live",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "book"},
				},
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "poll-interval",
						Usage: "Refresh interval used when the push channel is down",
					},
				},
				Action: r.CommentsWatch,
			},
		},
	}
}

// snapshotCommand handles catalog archival
func snapshotCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage:     "Archive books and comment threads to disk",
		ArgsUsage: "[book IDs...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: json, csv, markdown, txt",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent export workers",
				Value: 5,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "API requests per second",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  "skip-threads",
				Usage: "Export book metadata only, without comments",
			},
			&cli.BoolFlag{
				Name:  "covers",
				Usage: "Download cover images (markdown format)",
			},
		},
		Action: r.Snapshot,
	}
}

// tuiCommand returns the top-level TUI command for interactive catalog browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "browse"},
		Usage:   "Launch interactive TUI for browsing the catalog",
		Action:  r.TUI,
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"saun/internal/bootstrap"
	"saun/internal/session"
)

func newSessionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and manage photo sessions",
	}
	cmd.AddCommand(newSessionShowCmd(opts), newSessionArchiveCmd(opts), newSessionDeleteCmd(opts))
	return cmd
}

// openSessions wires a session service without a remote uploader; the CLI
// never creates sessions.
func openSessions(cmd *cobra.Command, opts *rootOptions) (*session.Service, func(), error) {
	cfg, logger, err := opts.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := bootstrap.OpenStore(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	blobs, err := bootstrap.OpenBlobs(cmd.Context(), cfg)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	svc := session.NewService(store, blobs.Store, nil, session.Options{MaxBytes: cfg.MaxUploadBytes, Logger: logger})
	return svc, func() { _ = store.Close() }, nil
}

func newSessionShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session with its assets and jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openSessions(cmd, opts)
			if err != nil {
				return err
			}
			defer closeFn()
			view, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, view, func() ([]string, [][]string) {
				return sessionTable(view)
			})
		},
	}
}

func newSessionArchiveCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "archive <session-id>",
		Short: "Write every image of a session into a zip file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openSessions(cmd, opts)
			if err != nil {
				return err
			}
			defer closeFn()
			data, err := svc.Archive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("session-%s.zip", args[0])
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, map[string]any{"file": out, "bytes": len(data)}, nil)
		},
	}
	cmd.Flags().StringVar(&out, "file", "", "Destination path (default session-<id>.zip)")
	return cmd
}

func newSessionDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session, its rows and its stored images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openSessions(cmd, opts)
			if err != nil {
				return err
			}
			defer closeFn()
			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, map[string]string{"session_id": args[0], "status": "deleted"}, nil)
		},
	}
}

func sessionTable(view *session.View) ([]string, [][]string) {
	rows := [][]string{{"session", view.ID, view.Status, view.CreatedAt.Format("2006-01-02 15:04:05"), view.OriginalImageURL}}
	for _, a := range view.Assets {
		rows = append(rows, []string{"asset", a.ID, a.Kind, a.CreatedAt.Format("2006-01-02 15:04:05"), a.URL})
	}
	for _, j := range view.Jobs {
		detail := fmt.Sprintf("%d image(s)", len(j.GeneratedImages))
		if j.Error != nil {
			detail = truncate(*j.Error, 60)
		}
		rows = append(rows, []string{"job", j.JobID, j.Status, j.CreatedAt.Format("2006-01-02 15:04:05"), detail})
	}
	return []string{"Type", "ID", "Status", "Created", "Detail"}, rows
}

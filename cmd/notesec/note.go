package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"notesec/internal/api"
	"notesec/internal/config"
)

func newNoteCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage saved notes that attachments can reference",
	}
	cmd.AddCommand(newNoteAddCmd(cfg, out), newNoteShowCmd(cfg, out))
	return cmd
}

func newNoteAddCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var id string
	var title string
	var content string
	var file string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a markdown note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.NoteCreateRequest{ID: id, Title: title, Content: content}
			if file != "" {
				raw, err := readDocument(file)
				if err != nil {
					return err
				}
				doc, err := parseNoteMarkdown(string(raw))
				if err != nil {
					return err
				}
				req.Content = doc.Content
				if req.ID == "" {
					req.ID = doc.ID
				}
				if req.Title == "" {
					req.Title = doc.Title
				}
			}
			if strings.TrimSpace(req.Title) == "" {
				return fmt.Errorf("title is required (use --title or a front matter title)")
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CreateNote(cmd.Context(), req)
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(resp)
				}
				return writePlain("%s\n", resp.ID)
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "note id (generated when omitted)")
	cmd.Flags().StringVar(&title, "title", "", "note title")
	cmd.Flags().StringVar(&content, "content", "", "markdown content")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read markdown (with optional front matter) from a file (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("content", "file")
	return cmd
}

func newNoteShowCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved note",
		Args:  requireExactlyArgs(1, "id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetNote(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(resp)
				}
				return writeNoteDetail(resp)
			})
		},
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"notesec/internal/api"
	"notesec/internal/config"
	"notesec/internal/models"
)

func newChatCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Read and write encrypted conversations",
	}

	cmd.AddCommand(
		newChatLoadCmd(cfg, out),
		newChatSaveMessageCmd(cfg, out),
		newChatSaveAttachmentCmd(cfg, out),
		newChatGetAttachmentCmd(cfg),
	)
	return cmd
}

func newChatLoadCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "load <conversation-id>",
		Short: "Print every message of a conversation in order",
		Args:  requireExactlyArgs(1, "conversation id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				payloads, err := client.LoadConversation(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(payloads)
				}
				return writeConversation(payloads)
			})
		},
	}
}

func newChatSaveMessageCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var identity string
	var payload string
	var file string
	var force bool

	cmd := &cobra.Command{
		Use:   "save-message <conversation-id> <index>",
		Short: "Store one message payload at a sequence index",
		Args:  requireExactlyArgs(2, "conversation id and index are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndexArg(args[1])
			if err != nil {
				return err
			}

			var raw []byte
			switch {
			case file != "":
				raw, err = readDocument(file)
				if err != nil {
					return err
				}
			case payload != "":
				raw = []byte(payload)
			default:
				return fmt.Errorf("one of --payload or --file is required")
			}
			body, err := payloadFromDocument(raw)
			if err != nil {
				return err
			}

			req := api.SaveMessageRequest{Identity: identity, Payload: body, Force: force}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.SaveMessage(cmd.Context(), args[0], index, req)
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(resp)
				}
				if !resp.Written {
					return writePlain("unchanged\n")
				}
				return writePlain("saved %s\n", resp.Path)
			})
		},
	}

	cmd.Flags().StringVar(&identity, "identity", "", "identity tag (defaults to the payload's \"id\" field)")
	cmd.Flags().StringVar(&payload, "payload", "", "message payload as JSON or YAML")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the payload from a JSON or YAML file (- for stdin)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite a message with a different identity")
	cmd.MarkFlagsMutuallyExclusive("payload", "file")
	return cmd
}

func newChatSaveAttachmentCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var attachmentID string
	var mediaType string
	var filename string
	var summary string
	var fromURL, fromDataURI, fromPath, fromNote string

	cmd := &cobra.Command{
		Use:   "save-attachment <conversation-id>",
		Short: "Store attachment metadata, summary and data",
		Args:  requireExactlyArgs(1, "conversation id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.SaveAttachmentRequest{
				AttachmentID: attachmentID,
				MediaType:    mediaType,
				Filename:     filename,
			}
			if cmd.Flags().Changed("summary") {
				req.Summary = &summary
			}

			source, err := attachmentSourceFromFlags(fromURL, fromDataURI, fromPath, fromNote)
			if err != nil {
				return err
			}
			req.Source = source

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.SaveAttachment(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(resp)
				}
				return writePlain("%s\t%s\n", resp.AttachmentID, resp.Path)
			})
		},
	}

	cmd.Flags().StringVar(&attachmentID, "id", "", "attachment id (generated when omitted)")
	cmd.Flags().StringVar(&mediaType, "media-type", "", "media type of the data")
	cmd.Flags().StringVar(&filename, "filename", "", "display filename (inferred when omitted)")
	cmd.Flags().StringVar(&summary, "summary", "", "textual summary")
	cmd.Flags().StringVar(&fromURL, "url", "", "fetch data from an http(s) URL")
	cmd.Flags().StringVar(&fromDataURI, "data-uri", "", "decode data from a data: URI")
	cmd.Flags().StringVar(&fromPath, "path", "", "read data from a local file")
	cmd.Flags().StringVar(&fromNote, "ref", "", "use the content of a saved note")
	cmd.MarkFlagsMutuallyExclusive("url", "data-uri", "path", "ref")
	return cmd
}

// attachmentSourceFromFlags builds the wire descriptor from at most one
// source flag. Local paths are made absolute since the server resolves them.
func attachmentSourceFromFlags(fromURL, fromDataURI, fromPath, fromNote string) (*api.AttachmentSource, error) {
	set := 0
	for _, v := range []string{fromURL, fromDataURI, fromPath, fromNote} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return nil, fmt.Errorf("only one of --url, --data-uri, --path or --ref may be given")
	}

	switch {
	case fromURL != "":
		return &api.AttachmentSource{Kind: string(models.AttachmentSourceURL), Value: fromURL}, nil
	case fromDataURI != "":
		return &api.AttachmentSource{Kind: string(models.AttachmentSourceDataURI), Value: fromDataURI}, nil
	case fromPath != "":
		abs, err := filepath.Abs(fromPath)
		if err != nil {
			return nil, err
		}
		return &api.AttachmentSource{Kind: string(models.AttachmentSourcePath), Value: abs}, nil
	case fromNote != "":
		return &api.AttachmentSource{Kind: string(models.AttachmentSourceNoteRef), Value: fromNote}, nil
	default:
		return nil, nil
	}
}

func newChatGetAttachmentCmd(cfg *config.Config) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "get-attachment <conversation-id> <attachment-id> [meta|summary|data]",
		Short: "Write one attachment slot to stdout or a file",
		Args:  requireArgsBetween(2, 3, "conversation id and attachment id are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot := string(models.AttachmentSlotData)
			if len(args) == 3 {
				slot = args[2]
			}
			if _, err := models.ParseAttachmentSlot(slot); err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			toFile := outPath != "" && outPath != "-"
			if toFile {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			return withClient(cfg, func(client *api.Client) error {
				contentType, err := client.ReadAttachment(cmd.Context(), args[0], args[1], slot, w)
				if err != nil {
					return err
				}
				if toFile {
					fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s)\n", outPath, contentType)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

func parseIndexArg(raw string) (uint16, error) {
	index, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("index must be an integer between 0 and 65535, got %q", raw)
	}
	return uint16(index), nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	"github.com/noah-isme/edu-certificate-api/internal/store"
	"github.com/noah-isme/edu-certificate-api/pkg/client"
	"github.com/noah-isme/edu-certificate-api/pkg/export"
	"github.com/noah-isme/edu-certificate-api/pkg/qrcode"
)

type cli struct {
	settings *viper.Viper
	store    *store.CertificateStore
	out      io.Writer
}

func newRootCommand() *cobra.Command {
	app := &cli{settings: viper.New()}
	app.settings.SetEnvPrefix("CERTCTL")
	app.settings.AutomaticEnv()

	root := &cobra.Command{
		Use:           "certctl",
		Short:         "Operate the certificate API from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.out = cmd.OutOrStdout()
			app.store = store.New(client.New(client.Config{
				BaseURL:    app.settings.GetString("api"),
				Token:      app.settings.GetString("token"),
				Timeout:    app.settings.GetDuration("timeout"),
				RetryCount: 1,
			}), zap.NewNop())
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("api", "http://localhost:8080/api/v1", "API base URL including prefix (CERTCTL_API)")
	flags.String("token", "", "bearer token (CERTCTL_TOKEN)")
	flags.Duration("timeout", 15*time.Second, "request timeout")
	for _, name := range []string{"api", "token", "timeout"} {
		_ = app.settings.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		app.verifyCommand(),
		app.eligibilityCommand(),
		app.generateCommand(),
		app.revokeCommand(),
		app.listCommand(),
		app.statsCommand(),
		app.templatesCommand(),
		app.renderCommand(),
	)
	return root
}

func (a *cli) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <certificate-number>",
		Short: "Verify a certificate number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.store.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(result)
		},
	}
}

func (a *cli) eligibilityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "eligibility <student-id> <course-id>",
		Short: "Evaluate a student's eligibility for a course",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.store.CheckEligibility(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.print(result)
		},
	}
}

func (a *cli) generateCommand() *cobra.Command {
	var req dto.GenerateCertificateRequest
	var templateID string
	cmd := &cobra.Command{
		Use:   "generate <student-id> <course-id>",
		Short: "Issue a certificate after an eligibility check",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.StudentID, req.CourseID = args[0], args[1]
			if templateID != "" {
				req.TemplateID = &templateID
			}
			result, err := a.store.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(result)
		},
	}
	cmd.Flags().BoolVar(&req.Automatic, "automatic", false, "mark the issuance as automatic")
	cmd.Flags().BoolVar(&req.Override, "override", false, "issue even when not eligible (privileged)")
	cmd.Flags().StringVar(&templateID, "template", "", "template id")
	return cmd
}

func (a *cli) revokeCommand() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "revoke <certificate-id>",
		Short: "Revoke a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Revoke(cmd.Context(), args[0], reason); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "certificate %s revoked\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "justification recorded with the revocation")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func (a *cli) listCommand() *cobra.Command {
	var page, limit int
	list := &cobra.Command{Use: "list", Short: "List certificates"}
	student := &cobra.Command{
		Use:   "student <student-id>",
		Short: "List a student's certificates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			certs, err := a.store.LoadMyCertificates(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(certs)
		},
	}
	course := &cobra.Command{
		Use:   "course <course-id>",
		Short: "List a course's certificates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := a.store.LoadCourseCertificates(cmd.Context(), args[0], page, limit)
			if err != nil {
				return err
			}
			return a.print(loaded)
		},
	}
	course.Flags().IntVar(&page, "page", 1, "page number")
	course.Flags().IntVar(&limit, "limit", 20, "page size")
	list.AddCommand(student, course)
	return list
}

func (a *cli) statsCommand() *cobra.Command {
	var courseID, from, to string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show certificate statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := models.StatsFilter{CourseID: courseID}
			var err error
			if filter.From, err = parseDay(from); err != nil {
				return err
			}
			if filter.To, err = parseDay(to); err != nil {
				return err
			}
			stats, err := a.store.LoadStats(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return a.print(stats)
		},
	}
	cmd.Flags().StringVar(&courseID, "course", "", "course id")
	cmd.Flags().StringVar(&from, "from", "", "issued from (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "issued to (YYYY-MM-DD)")
	return cmd
}

func (a *cli) templatesCommand() *cobra.Command {
	templates := &cobra.Command{Use: "templates", Short: "Manage certificate templates"}
	templates.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List templates",
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := a.store.LoadTemplates(cmd.Context(), true)
				if err != nil {
					return err
				}
				return a.print(list)
			},
		},
		&cobra.Command{
			Use:   "apply <file.json> [template-id]",
			Short: "Create or update a template from a JSON payload",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				raw, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				var req dto.TemplateRequest
				if err := json.Unmarshal(raw, &req); err != nil {
					return fmt.Errorf("parse %s: %w", args[0], err)
				}
				id := ""
				if len(args) == 2 {
					id = args[1]
				}
				tpl, err := a.store.SaveTemplate(cmd.Context(), id, req)
				if err != nil {
					return err
				}
				return a.print(tpl)
			},
		},
		&cobra.Command{
			Use:   "delete <template-id>",
			Short: "Delete a template",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.store.DeleteTemplate(cmd.Context(), args[0])
			},
		},
	)
	return templates
}

func (a *cli) renderCommand() *cobra.Command {
	var outDir string
	var assetTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "render <certificate-id>",
		Short: "Render a certificate PDF locally from its download data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.store.DownloadData(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			renderer := export.NewCertificateRenderer(export.NewHTTPAssetLoader(assetTimeout), qrcode.NewGenerator(qrcode.DefaultSize), logger)
			ctx, cancel := context.WithTimeout(cmd.Context(), assetTimeout*3)
			defer cancel()
			rendered, err := renderer.Render(ctx, export.RenderInput{
				Certificate:     data.Certificate,
				Template:        data.Template,
				VerificationURL: data.QRData.VerificationURL,
			})
			if err != nil {
				return err
			}
			path := filepath.Join(outDir, rendered.Filename)
			if err := os.WriteFile(path, rendered.Content, 0o644); err != nil {
				return err
			}
			for _, fallback := range rendered.Report.Fallbacks {
				fmt.Fprintf(a.out, "warning: %s fell back: %s\n", fallback.Stage, fallback.Reason)
			}
			fmt.Fprintln(a.out, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	cmd.Flags().DurationVar(&assetTimeout, "asset-timeout", 5*time.Second, "background image fetch timeout")
	return cmd
}

func (a *cli) print(value interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func parseDay(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return &day, nil
}

package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"contentops/internal/article"
	"contentops/internal/config"
	"contentops/internal/core"
	"contentops/internal/persistence"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(10)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	bodyStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Padding(0, 1)
)

// NewGenerateCmd creates the generate command for drafting articles from the terminal
func NewGenerateCmd() *cobra.Command {
	var (
		topic    string
		category string
		publish  bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft (and optionally publish) an article",
		Long: `Run the article workflow from the command line.

Without --topic a topic is chosen by the model from the category's
keyword cluster. With --publish the article is stored as a published post,
which requires a database connection.

Examples:
  contentops generate --topic "AI in customs clearance"
  contentops generate --category logistics --publish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runGenerate(ctx, cmd.OutOrStdout(), cfg, article.Request{
				Topic:    topic,
				Category: core.ParseCategory(category),
			}, publish)
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Article topic (resolved from the category when empty)")
	cmd.Flags().StringVarP(&category, "category", "c", string(core.CategoryBoth), "Topic category: logistics, ai or both")
	cmd.Flags().BoolVar(&publish, "publish", false, "Store the article as a published post")

	return cmd
}

func runGenerate(ctx context.Context, out io.Writer, cfg *config.Config, req article.Request, publish bool) error {
	var db *persistence.SQLDB
	if publish {
		var err error
		if db, err = openDatabase(ctx, cfg.Database); err != nil {
			return err
		}
	}

	a, err := newApp(cfg, db)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return err
	}
	defer a.Close()

	run := a.workflow.Generate
	if publish {
		run = a.workflow.Publish
	}

	result, err := run(ctx, req)
	if err != nil {
		return fmt.Errorf("article generation failed: %w", err)
	}

	printResult(out, result)
	return nil
}

func printResult(out io.Writer, r *article.Result) {
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintln(out, labelStyle.Render(label)+value)
	}

	fmt.Fprintln(out, titleStyle.Render(r.Article.Title))
	row("Topic", r.Topic)
	row("Slug", r.Article.Slug)
	row("Cover", r.Article.CoverImage)
	row("Post ID", r.PostID)
	row("Excerpt", r.Article.Excerpt)
	if r.FellBack {
		fmt.Fprintln(out, warnStyle.Render("The model did not return JSON; the raw reply was used as content."))
	}
	fmt.Fprintln(out, bodyStyle.Render(strings.TrimSpace(r.Article.Content)))
	fmt.Fprintln(out, r.Summary())
}

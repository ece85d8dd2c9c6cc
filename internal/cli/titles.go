package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/coursenotify/internal/notification"
)

// TitleRow is one line of the type table.
type TitleRow struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Category string `json:"category"`
	WebApp   bool   `json:"webapp_default"`
	Email    bool   `json:"email_default"`
}

// NewTitlesCommand creates the titles command.
func NewTitlesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "titles",
		Short: "List notification types with their titles and categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := titleRows()
			return rootOpts.formatter(cmd).Result(rows, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TYPE\tTITLE\tCATEGORY\tWEBAPP\tEMAIL")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Type, r.Title, r.Category, yesNo(r.WebApp), yesNo(r.Email))
				}
				return tw.Flush()
			})
		},
	}
}

func titleRows() []TitleRow {
	types := notification.Types()
	rows := make([]TitleRow, 0, len(types))
	for _, t := range types {
		title, _ := notification.Title(t)
		cat, _ := notification.CategoryOf(t)
		d := cat.Defaults()
		rows = append(rows, TitleRow{
			Type:     string(t),
			Title:    title,
			Category: cat.Key(),
			WebApp:   d.WebApp,
			Email:    d.Email,
		})
	}
	return rows
}

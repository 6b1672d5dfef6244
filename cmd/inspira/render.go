package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jsamuelsen/inspira/internal/app"
	"github.com/jsamuelsen/inspira/internal/domain"
)

const previewWidth = 48

func printList(w io.Writer, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		_, err := fmt.Fprintln(w, "no quotes yet; start one with `inspira new`")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tCREATED\tCREATOR\tTEXT")

	for i := range quotes {
		q := &quotes[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			i,
			q.DateCreated.Local().Format(time.DateTime),
			orDash(q.Creator),
			orDash(preview(q.Text)),
		)
	}

	return tw.Flush()
}

func printDisplayed(w io.Writer, session *app.Session) error {
	q, pos := session.Displayed()
	if q == nil {
		_, err := fmt.Fprintln(w, "nothing displayed")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "position\t%d\n", pos)
	fmt.Fprintf(tw, "id\t%s\n", q.ID)
	fmt.Fprintf(tw, "created\t%s\n", q.DateCreated.Local().Format(time.DateTime))

	for _, field := range domain.Fields() {
		fmt.Fprintf(tw, "%s\t%s\n", field, orDash(q.Get(field)))
	}

	if q.HasImage() {
		fmt.Fprintf(tw, "image\t%d bytes\n", len(q.ImageData))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if err := domain.ValidateForSave(q); err != nil {
		_, err = fmt.Fprintln(w, "warning:", domain.MissingTextMessage)
		return err
	}

	return nil
}

// preview keeps the first line of s, cut to previewWidth runes.
func preview(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")

	runes := []rune(s)
	if len(runes) > previewWidth {
		return string(runes[:previewWidth-1]) + "…"
	}

	return s
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}

	return s
}

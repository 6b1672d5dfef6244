package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/inspira/internal/domain"
)

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List quotes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printList(cmd.OutOrStdout(), c.rt.Session.Quotes())
		},
	}
}

func (c *cli) newCmd() *cobra.Command {
	var (
		values    = map[domain.Field]*string{}
		imagePath string
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new quote, optionally filling it in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			session := c.rt.Session

			if _, err := session.StartNewEntry(ctx); err != nil {
				return err
			}

			for _, field := range domain.Fields() {
				if !cmd.Flags().Changed(flagName(field)) {
					continue
				}

				if _, err := session.UpdateField(ctx, field, *values[field]); err != nil {
					return err
				}
			}

			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("reading image: %w", err)
				}

				if _, err := session.SetImage(ctx, data); err != nil {
					return err
				}
			}

			return printDisplayed(cmd.OutOrStdout(), session)
		},
	}

	for _, field := range domain.Fields() {
		values[field] = cmd.Flags().String(flagName(field), "", "quote "+string(field))
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "path to an image file to attach")

	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show POS",
		Short: "Show the quote at a list position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.selectArg(cmd, args[0]); err != nil {
				return err
			}

			return printDisplayed(cmd.OutOrStdout(), c.rt.Session)
		},
	}
}

func (c *cli) editCmd() *cobra.Command {
	var fieldName, value string

	cmd := &cobra.Command{
		Use:   "edit POS",
		Short: "Set one field of the quote at a list position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := domain.ParseField(fieldName)
			if err != nil {
				return err
			}

			if err := c.selectArg(cmd, args[0]); err != nil {
				return err
			}

			if _, err := c.rt.Session.UpdateField(cmd.Context(), field, value); err != nil {
				return err
			}

			return printDisplayed(cmd.OutOrStdout(), c.rt.Session)
		},
	}

	cmd.Flags().StringVarP(&fieldName, "field", "f", "", "field to set: text, creator, description_of_how_found, interpretation")
	cmd.Flags().StringVar(&value, "value", "", "new value; empty clears the field")
	_ = cmd.MarkFlagRequired("field")

	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete POS",
		Short: "Delete the quote at a list position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.selectArg(cmd, args[0]); err != nil {
				return err
			}

			next, err := c.rt.Session.DeleteCurrent(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "deleted")

			if next == nil {
				return nil
			}

			return printDisplayed(out, c.rt.Session)
		},
	}
}

// selectArg displays the quote at the position named by arg.
func (c *cli) selectArg(cmd *cobra.Command, arg string) error {
	pos, err := strconv.Atoi(arg)
	if err != nil {
		return domain.NewValidationError("position", "must be a whole number")
	}

	_, err = c.rt.Session.SelectExisting(cmd.Context(), pos)

	return err
}

// flagName maps description_of_how_found to the shorter --found.
func flagName(f domain.Field) string {
	if f == domain.FieldDescriptionOfHowFound {
		return "found"
	}

	return string(f)
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/authoring"
	"github.com/sakif/coursehub/internal/browse"
	"github.com/sakif/coursehub/internal/model"
)

func newReviewsCmd(a *app) *cobra.Command {
	var (
		query string
		order string
	)
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "List every review, optionally filtered by course name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := browse.NewView(a.client, a.logger)
			if err := view.Reload(cmd.Context()); err != nil {
				return err
			}
			view.SetQuery(query)
			view.SetOrder(browse.ParseOrder(order))

			results := view.Results()
			for _, r := range results {
				printReview(cmd, r)
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reviews found.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "course name contains (case-insensitive)")
	cmd.Flags().StringVar(&order, "order", string(browse.Descending), "rating order: desc or asc")
	return cmd
}

func newCoursesCmd(a *app) *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List known courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			courses, err := a.client.ListAllCourses(cmd.Context())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(courses))
			if match != "" {
				names = authoring.Suggest(courses, match)
			} else {
				for _, c := range courses {
					names = append(names, c.Name)
				}
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&match, "match", "", "only courses whose name contains this")
	return cmd
}

// newReviewCmd groups the commands that change the signed-in user's own
// reviews. Each one drives an authoring.Page the same way the web page does.
func newReviewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Manage your own reviews",
	}
	cmd.AddCommand(newMineCmd(a), newAddCmd(a), newEditCmd(a), newDeleteCmd(a))
	return cmd
}

func (a *app) authoringPage(cmd *cobra.Command) (*authoring.Page, error) {
	p, err := a.principal(cmd.Context())
	if err != nil {
		return nil, err
	}
	page := authoring.NewPage(a.client, p.ID, a.logger)
	if err := page.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return page, nil
}

func newMineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List the reviews you wrote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.authoringPage(cmd)
			if err != nil {
				return err
			}
			reviews := page.Reviews()
			for _, r := range reviews {
				printReview(cmd, r)
			}
			if len(reviews) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "You have not written any reviews yet.")
			}
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var (
		course  string
		rating  int
		comment string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Write a review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.authoringPage(cmd)
			if err != nil {
				return err
			}
			form := page.CreateForm()
			form.SetCourseName(course)
			form.SetRating(rating)
			form.SetComment(comment)

			review, err := form.Submit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved.")
			printReview(cmd, *review)
			return nil
		},
	}
	cmd.Flags().StringVar(&course, "course", "", "course name")
	cmd.Flags().IntVar(&rating, "rating", 0, "stars, 0 to 5")
	cmd.Flags().StringVar(&comment, "comment", "", "review text")
	_ = cmd.MarkFlagRequired("course")
	_ = cmd.MarkFlagRequired("comment")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var (
		rating  int
		comment string
	)
	cmd := &cobra.Command{
		Use:   "edit REVIEW_ID",
		Short: "Change the rating or comment of one of your reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReviewID(args[0])
			if err != nil {
				return err
			}
			page, err := a.authoringPage(cmd)
			if err != nil {
				return err
			}
			review, ok := findReview(page.Reviews(), id)
			if !ok {
				return apperror.NotFound("review", id)
			}

			form := page.Edit(review)
			if cmd.Flags().Changed("rating") {
				form.SetRating(rating)
			}
			if cmd.Flags().Changed("comment") {
				form.SetComment(comment)
			}

			updated, err := form.Submit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved.")
			printReview(cmd, *updated)
			return nil
		},
	}
	cmd.Flags().IntVar(&rating, "rating", 0, "stars, 0 to 5")
	cmd.Flags().StringVar(&comment, "comment", "", "review text")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete REVIEW_ID",
		Short: "Delete one of your reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReviewID(args[0])
			if err != nil {
				return err
			}
			page, err := a.authoringPage(cmd)
			if err != nil {
				return err
			}
			if err := page.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted review #%d.\n", id)
			return nil
		},
	}
}

func parseReviewID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("reviewId", "review id must be a positive integer")
	}
	return id, nil
}

func findReview(reviews []model.Review, id int64) (model.Review, bool) {
	for _, r := range reviews {
		if r.ID == id {
			return r, true
		}
	}
	return model.Review{}, false
}

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/handsomefox/movie-ranking/internal/config"
	"github.com/handsomefox/movie-ranking/internal/logger"
	"github.com/handsomefox/movie-ranking/internal/ranking"
	"github.com/handsomefox/movie-ranking/internal/store"
	"github.com/handsomefox/movie-ranking/internal/tmdb"
)

func bindFlag(v *viper.Viper, flag *pflag.Flag, key string) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag.Name, err))
	}
}

func newRerankCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "rerank",
		Short: "Recalculate rankings and print the list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, false)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open db: %w", err)
			}
			defer func() {
				if err := st.Close(); err != nil {
					slog.Error("Failed to close DB", logger.Error(err))
				}
			}()

			movies, err := st.Rerank(cmd.Context())
			if err != nil {
				return err
			}
			if err := printRanking(cmd.OutOrStdout(), movies); err != nil {
				return err
			}
			total, err := st.Count(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d movies ranked\n", total)
			return err
		},
	}
}

func printRanking(w io.Writer, movies []store.Movie) error {
	ranks := make([]int, 0, len(movies))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tRATING\tTITLE\tID")
	for i := len(movies) - 1; i >= 0; i-- {
		m := movies[i]
		rating := "-"
		if m.Rating.Valid {
			rating = strconv.FormatFloat(m.Rating.V, 'f', -1, 64)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", m.Ranking.V, rating, m.Title, m.ID)
		ranks = append(ranks, int(m.Ranking.V))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !ranking.IsPermutation(ranks) {
		return errors.New("rankings are not a permutation of 1..N")
	}
	return nil
}

func newSearchCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "search <title>",
		Short: "Search TMDB the way the add page does",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, true)
			if err != nil {
				return err
			}
			client := tmdb.New(cfg.TMDB())
			results, err := client.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results)
		},
	}
}

func printResults(w io.Writer, results []tmdb.SearchResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tYEAR\tTITLE")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.Year(), r.Title)
	}
	return tw.Flush()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aretw0/wizard/internal/cli"
	"github.com/aretw0/wizard/internal/codec"
	"github.com/aretw0/wizard/pkg/ports"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved guide progress",
	Long:  `List, inspect, and remove the progress saved in the configured session store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SessionStore) error {
			return runSessionList(cmd.Context(), cmd.OutOrStdout(), store)
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-key>",
	Short: "Print a saved session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SessionStore) error {
			return runSessionInspect(cmd.Context(), cmd.OutOrStdout(), store, args[0])
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-key>...",
	Short: "Remove one or more sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return errors.New("pass at least one session key or --all")
		}
		return withStore(cmd, func(store ports.SessionStore) error {
			return runSessionRemove(cmd.Context(), cmd.OutOrStdout(), store, args, all)
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every saved session")
}

func withStore(cmd *cobra.Command, fn func(ports.SessionStore) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	stack, err := cli.OpenStore(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer stack.Close()
	return fn(stack.Store)
}

func runSessionList(ctx context.Context, w io.Writer, store ports.SessionStore) error {
	keys, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(keys) == 0 {
		fmt.Fprintln(w, "No saved sessions found.")
		return nil
	}

	table := tablewriter.NewTable(w)
	table.Header("Key", "Guide", "Step", "Answers", "Saved")
	for _, key := range keys {
		s, err := store.Load(ctx, key)
		if err != nil {
			_ = table.Append(key, "?", "?", "?", err.Error())
			continue
		}
		saved := "-"
		if !s.LastSavedAt.IsZero() {
			saved = s.LastSavedAt.Local().Format(time.DateTime)
		}
		_ = table.Append(key, s.GuideID, strconv.Itoa(s.CurrentStep+1), strconv.Itoa(len(s.Answers)), saved)
	}
	return table.Render()
}

func runSessionInspect(ctx context.Context, w io.Writer, store ports.SessionStore, key string) error {
	s, err := store.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load session %q: %w", key, err)
	}
	data, err := codec.EncodeSessionIndent(s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func runSessionRemove(ctx context.Context, w io.Writer, store ports.SessionStore, keys []string, all bool) error {
	if all {
		listed, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		keys = listed
	}

	var errs []error
	for _, key := range keys {
		if err := store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %q: %w", key, err))
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", key)
	}
	return errors.Join(errs...)
}

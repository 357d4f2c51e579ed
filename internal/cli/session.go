package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/aretw0/fable/pkg/ports"
)

// ListSessions prints stored session IDs, one per line.
func ListSessions(ctx context.Context, st *Stack, w io.Writer) error {
	ids, err := st.Sessions.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

// ShowSession prints a session as indented JSON.
func ShowSession(ctx context.Context, st *Stack, w io.Writer, id string) error {
	s, err := st.Sessions.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("error loading session %q: %w", id, err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// SessionHistory prints the checkpoints a session can be reverted to.
func SessionHistory(ctx context.Context, st *Stack, w io.Writer, id string) error {
	s, err := st.Sessions.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("error loading session %q: %w", id, err)
	}
	if len(s.Checkpoints) == 0 {
		fmt.Fprintln(w, "No checkpoints.")
		return nil
	}
	for i, cp := range s.Checkpoints {
		fmt.Fprintf(w, "%3d  turn %-4d %s\n", i, cp.Turn, cp.Address)
	}
	return nil
}

// DeleteSessions removes every listed session and reports each outcome.
func DeleteSessions(ctx context.Context, st *Stack, w io.Writer, ids []string) error {
	failed := 0
	for _, id := range ids {
		if err := st.Sessions.Delete(ctx, id); err != nil {
			fmt.Fprintf(w, "Error removing %q: %v\n", id, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "Removed session %q\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sessions could not be removed", failed, len(ids))
	}
	return nil
}

// RevertSession rewinds a stored session to checkpoint index.
func RevertSession(ctx context.Context, st *Stack, engine ports.Advancer, w io.Writer, id string, index int) error {
	s, err := st.Sessions.Revert(ctx, engine, id, index)
	if err != nil {
		return fmt.Errorf("error reverting session %q: %w", id, err)
	}
	fmt.Fprintf(w, "Session %q is back at %s (turn %d)\n", id, s.Address, s.Turn)
	return nil
}

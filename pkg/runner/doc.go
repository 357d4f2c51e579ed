/*
Package runner plays a story interactively.

The runner drives the advance loop for one session: it hands every result
to an IOHandler, collects player replies at input seams, continues through
media and grant seams, and stops when the story finishes or fails.

# Key Components

  - Runner: the play loop, optionally persisting through a session.Manager.
  - IOHandler: how results reach the player and replies come back.
  - TextHandler: line-oriented terminal play.
  - JSONHandler: one JSON object per result for programmatic hosts.

# Usage

	r := runner.NewRunner(
		runner.WithSessionID("player-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	if _, err := r.Run(ctx, engine); err != nil {
		log.Fatal(err)
	}
*/
package runner

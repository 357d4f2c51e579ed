/*
Package fable executes interactive audio stories.

A story is a tree of typed nodes (dialogue, variables, branches, loops,
reusable blocks, input requests and generation directives) compiled into a
cartridge. The engine advances a player's session through that tree one call
at a time and stops at a seam: it needs player input, it produced media to
play, it spent its dispatch budget, it hit an error, or the story finished.

# Concept

The session is the only mutable state. It records the current address, the
control-flow stack, variables, the random stream position and a bounded list
of checkpoints. Hosts persist it between calls (see pkg/session and the
store adapters) and can revert it to any retained checkpoint. Given the same
seed and inputs, a session replays identically.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/fable"
		"github.com/aretw0/fable/pkg/domain"
	)

	func main() {
		// A directory is read through Loam, a single file is decoded directly.
		eng, err := fable.New("./lighthouse")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		session := eng.NewSession("player-1")
		input := ""
		for {
			res := eng.Advance(ctx, session, input)
			input = ""
			for _, op := range res.Ops {
				if op.Type == domain.OpPlayMedia {
					fmt.Println(op.From, op.Body)
				}
			}
			switch res.Seam {
			case domain.SeamInput:
				fmt.Scanln(&input)
			case domain.SeamFinish, domain.SeamError:
				return
			}
		}
	}

Hosts that want a ready-made loop use pkg/runner; servers use the HTTP and
MCP adapters under pkg/adapters.
*/
package fable

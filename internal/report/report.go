// Package report renders the outcome of a run for the terminal.
package report

import (
	"fmt"

	"github.com/disiqueira/gotree/v3"

	"github.com/Ning0612/prscatalog/internal/service"
)

// RootLabel names the playlist of items directly under the media root
const RootLabel = "(root)"

// Tree renders every partition with its counters and synthesized playlists
func Tree(result *service.RunResult) string {
	tree := gotree.New("run " + result.RunID)

	for _, p := range result.Partitions {
		node := tree.Add(partitionLabel(p))
		for _, pl := range p.Playlists {
			node.Add(PlaylistLabel(pl.Title, pl.ID, len(pl.Members)))
		}
	}

	return tree.Print()
}

func partitionLabel(p *service.PartitionResult) string {
	label := fmt.Sprintf("%s: %d items, +%d -%d, source %d, last %d",
		p.Role, p.Items, p.Added, p.Removed, p.SourceID, p.LastID)
	if p.Copied > 0 {
		label += fmt.Sprintf(", %d copied", p.Copied)
	}
	if !p.Saved {
		label += " (not saved)"
	}
	return label
}

// PlaylistLabel formats one playlist node
func PlaylistLabel(title, id string, members int) string {
	if title == "" {
		title = RootLabel
	}
	noun := "items"
	if members == 1 {
		noun = "item"
	}
	return fmt.Sprintf("%s #%s (%d %s)", title, id, members, noun)
}

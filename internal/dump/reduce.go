package dump

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/jsonio"
	"github.com/odinkg/odin/internal/models"
)

// ReduceStats summarizes a hierarchy dump reduction.
type ReduceStats struct {
	Input  int `json:"input"`
	Kept   int `json:"kept"`
	Output int `json:"output"`
}

// ReduceHierarchy rewrites the hierarchy dump at in to out, keeping only
// inner nodes (ids some line names as a parent) and nodes with a subclassof
// edge. Parent lists are filtered to kept ids. Leaves that are only
// instances of something are dropped.
func ReduceHierarchy(ctx context.Context, log logrus.FieldLogger, in, out string) (ReduceStats, error) {
	var stats ReduceStats

	keep := make(map[string]struct{})

	err := jsonio.ScanLines(ctx, in, func(raw []byte) error {
		line, err := decodeHierarchyLine(raw, stats.Input+1)
		if err != nil {
			return err
		}

		for _, id := range line.InstanceOf {
			keep[id] = struct{}{}
		}

		for _, id := range line.SubclassOf {
			keep[id] = struct{}{}
		}

		if len(line.SubclassOf) > 0 {
			keep[line.ID] = struct{}{}
		}

		stats.Input++
		if stats.Input%progressEvery == 0 {
			log.WithField("lines", stats.Input).Info("searching inner nodes")
		}

		return nil
	})
	if err != nil {
		return stats, err
	}

	stats.Kept = len(keep)

	w, err := jsonio.CreateLines(out)
	if err != nil {
		return stats, err
	}

	n := 0

	err = jsonio.ScanLines(ctx, in, func(raw []byte) error {
		n++

		line, err := decodeHierarchyLine(raw, n)
		if err != nil {
			return err
		}

		if _, ok := keep[line.ID]; !ok {
			return nil
		}

		line.InstanceOf = filterKept(keep, line.InstanceOf)
		line.SubclassOf = filterKept(keep, line.SubclassOf)
		stats.Output++

		return w.Write(&line)
	})
	if err != nil {
		w.Close() //nolint:errcheck,gosec // already failing
		return stats, err
	}

	if err := w.Close(); err != nil {
		return stats, err
	}

	log.WithFields(logrus.Fields{
		"input":  stats.Input,
		"kept":   stats.Kept,
		"output": stats.Output,
	}).Info("hierarchy dump reduced")

	return stats, nil
}

func decodeHierarchyLine(raw []byte, n int) (models.HierarchyLine, error) {
	var line models.HierarchyLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return line, fmt.Errorf("%w: hierarchy line %d: %v", models.ErrMalformedInput, n, err)
	}

	if line.ID == "" {
		return line, fmt.Errorf("%w: hierarchy line %d", models.ErrMissingField("id"), n)
	}

	return line, nil
}

func filterKept(keep map[string]struct{}, ids []string) []string {
	if ids == nil {
		return nil
	}

	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if _, ok := keep[id]; ok {
			out = append(out, id)
		}
	}

	return out
}

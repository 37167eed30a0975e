package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/objindex"
)

// PrepareTasks pairs every entry of the input index with an output path,
// carrying the file name over, and saves the output index.
func PrepareTasks(log logrus.FieldLogger, inputDir, outputDir string) ([]models.Task, error) {
	in, err := objindex.Open(inputDir, log)
	if err != nil {
		return nil, err
	}

	out, err := objindex.Open(outputDir, log)
	if err != nil {
		return nil, err
	}

	tasks := make([]models.Task, 0, in.Len())

	for e := range in.All() {
		outPath, isNew := out.Put(e.ID, e.Name)
		tasks = append(tasks, models.Task{
			ID:      e.ID,
			IsNew:   isNew,
			InPath:  e.Path,
			OutPath: outPath,
			Name:    e.Name,
		})
	}

	if err := out.Save(); err != nil {
		return nil, err
	}

	return tasks, nil
}

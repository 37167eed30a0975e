package export

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/db"
	"github.com/odinkg/odin/internal/jsonio"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/pipeline"
)

// RecordSaver persists one final record.
type RecordSaver interface {
	SaveRecord(ctx context.Context, rec *models.Record) error
}

// StageName is the name of the persistence stage.
const StageName = "persist-records"

// NewPersistStage creates a stage that saves every record through saver and
// passes the document on unchanged to the output directory.
func NewPersistStage(saver RecordSaver, log logrus.FieldLogger) *pipeline.PerTask {
	log.WithField("schema_version", db.SchemaVersion()).Debug("persisting records")

	return pipeline.NewPerTask(StageName, func(ctx context.Context, task models.Task) error {
		var rec models.Record
		if err := jsonio.ReadDocument(task.InPath, &rec); err != nil {
			return err
		}

		if err := rec.Validate(); err != nil {
			return err
		}

		if err := saver.SaveRecord(ctx, &rec); err != nil {
			return err
		}

		return jsonio.WriteDocument(task.OutPath, &rec)
	}, log)
}

package client

import (
	"context"
	"net/url"
)

// RecordService reads records exported to the server's database.
type RecordService struct {
	c *Client
}

// Get returns the document of the record with the given iri.
func (s *RecordService) Get(ctx context.Context, iri string) (Record, error) {
	var rec Record
	if err := s.c.get(ctx, "/api/v1/records", url.Values{"iri": {iri}}, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// MappedTo lists the records mapped to an entity.
func (s *RecordService) MappedTo(ctx context.Context, entityID string) (*EntityRecords, error) {
	var resp EntityRecords
	if err := s.c.get(ctx, "/api/v1/entities/"+url.PathEscape(entityID)+"/records", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

package funifiersvc

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
)

const (
	databasePath     = "/database/"
	collectionSuffix = "__c"
)

// collectionPath returns the path of a custom collection, adding the `__c` suffix when missing.
func collectionPath(name string) string {
	if !strings.HasSuffix(name, collectionSuffix) {
		name += collectionSuffix
	}
	return databasePath + name
}

// withID encodes doc as a JSON object carrying `_id`.
func withID(id string, doc interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "encoding document")
	}
	m := make(map[string]interface{})
	if err = json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "document is not an object")
	}
	m["_id"] = id
	return m, nil
}

// Find returns the raw documents of collection matching query (field: value; nil for all).
func (c *Client) Find(ctx context.Context, collection string, query map[string]string) ([]json.RawMessage, error) {
	var docs []json.RawMessage
	if err := c.do(ctx, request{method: rest.Get, path: collectionPath(collection), query: query}, &docs); err != nil {
		return nil, errors.Wrapf(err, "querying %s", collection)
	}
	return docs, nil
}

// Insert creates a document.
func (c *Client) Insert(ctx context.Context, collection, id string, doc interface{}) error {
	body, err := withID(id, doc)
	if err != nil {
		return err
	}
	return errors.Wrapf(
		c.do(ctx, request{method: rest.Post, path: collectionPath(collection), body: body}, nil),
		"inserting into %s", collection,
	)
}

// Replace updates an existing document.
func (c *Client) Replace(ctx context.Context, collection, id string, doc interface{}) error {
	body, err := withID(id, doc)
	if err != nil {
		return err
	}
	return errors.Wrapf(
		c.do(ctx, request{method: rest.Put, path: collectionPath(collection), body: body}, nil),
		"updating %s", collection,
	)
}

// Upsert tries a Replace and falls back to an Insert when Funifier rejects it.
func (c *Client) Upsert(ctx context.Context, collection, id string, doc interface{}) error {
	err := c.Replace(ctx, collection, id, doc)
	if err == nil {
		return nil
	}
	var sErr *StatusError
	if !errors.As(err, &sErr) {
		return err
	}
	c.logger.Debug("funifier update rejected, inserting", map[string]interface{}{
		"collection": collection, "id": id, "status": sErr.StatusCode,
	})
	return c.Insert(ctx, collection, id, doc)
}

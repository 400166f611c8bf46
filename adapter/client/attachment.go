package client

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/dolmen-go/contextio"
	"github.com/vinicius-lino-figueiredo/mango/adapter/document"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

// documentBody builds the wire body for one document.
func documentBody(doc domain.Document) (map[string]any, error) {
	return document.Body(doc)
}

// attachmentContent opens the content of a staged attachment: inline bytes
// when present, otherwise the local file, read under the given context.
func attachmentContent(ctx context.Context, att *domain.Attachment) (io.Reader, func(), error) {
	if att.Content != nil {
		return bytes.NewReader(att.Content), func() {}, nil
	}
	f, err := os.Open(att.LocalPath)
	if err != nil {
		return nil, nil, err
	}
	return contextio.NewReader(ctx, f), func() { _ = f.Close() }, nil
}

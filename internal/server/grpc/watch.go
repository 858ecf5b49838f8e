package grpc

import (
	"github.com/dmitrijs2005/sendit/internal/rpc"
	"github.com/dmitrijs2005/sendit/internal/server/watch"
)

// WatchDocument sends the current snapshot, then a fresh one after every
// change notification, until the client goes away.
func (s *GRPCServer) WatchDocument(req *rpc.WatchDocumentRequest, stream rpc.DocumentSnapshotServerStream) error {
	ctx := stream.Context()
	p, err := s.principal(ctx, req)
	if err != nil {
		return err
	}

	// subscribe before the first read so no change slips between them
	sub := s.hub.Subscribe(watch.DocumentTopic(req.Collection, req.ID))
	defer sub.Close()

	s.logger.Debug(ctx, "watch document", "collection", req.Collection, "id", req.ID, "uid", p.UserID)
	for {
		doc, err := s.docs.Snapshot(ctx, p, req.Collection, req.ID)
		if err != nil {
			return s.toStatus(ctx, err)
		}
		if err := stream.Send(documentSnapshot(doc)); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-sub.C():
		}
	}
}

// WatchQuery streams the caller's query results the same way.
func (s *GRPCServer) WatchQuery(req *rpc.WatchQueryRequest, stream rpc.QuerySnapshotServerStream) error {
	ctx := stream.Context()
	p, err := s.principal(ctx, req)
	if err != nil {
		return err
	}

	sub := s.hub.Subscribe(watch.QueryTopic(req.Collection, p.UserID))
	defer sub.Close()

	s.logger.Debug(ctx, "watch query", "collection", req.Collection, "uid", p.UserID)
	for {
		docs, err := s.docs.Query(ctx, p, req.Collection, req.Filters)
		if err != nil {
			return s.toStatus(ctx, err)
		}
		if err := stream.Send(querySnapshot(docs)); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-sub.C():
		}
	}
}

// Package grpc exposes the Send It services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/sendit/internal/logging"
	"github.com/dmitrijs2005/sendit/internal/rpc"
	"github.com/dmitrijs2005/sendit/internal/server/services"
	"github.com/dmitrijs2005/sendit/internal/server/watch"
	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	rpc.UnimplementedSendItServer
	address   string
	sessions  *services.SessionService
	docs      *services.DocumentService
	blobs     *services.BlobService
	hub       *watch.Hub
	logger    logging.Logger
	jwtSecret []byte
	validate  *validator.Validate
}

func NewGRPCServer(a string, l logging.Logger, ss *services.SessionService, ds *services.DocumentService,
	bs *services.BlobService, hub *watch.Hub, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		sessions:  ss,
		docs:      ds,
		blobs:     bs,
		hub:       hub,
		jwtSecret: []byte(secretKey),
		validate:  validator.New(),
	}
}

// newServer builds the grpc.Server with interceptors and the service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.accessTokenStreamInterceptor),
	)
	rpc.RegisterSendItServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		// watch streams only end when their clients go away
		srv.Stop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

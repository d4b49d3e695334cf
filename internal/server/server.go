package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ChuLiYu/gridpath/internal/coordinator"
	"github.com/ChuLiYu/gridpath/internal/grid"
	"github.com/ChuLiYu/gridpath/internal/searchjob"
	"github.com/ChuLiYu/gridpath/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server implements the gRPC Pathfinder service on top of a coordinator.
//
// FindPath blocks until the coordinator delivers the job's callback, so the
// coordinator must be delivering: either started with AutoDeliver or driven
// by a host loop calling Poll.
type Server struct {
	coord *coordinator.Coordinator
}

// NewServer creates a new gRPC server instance.
func NewServer(coord *coordinator.Coordinator) *Server {
	return &Server{coord: coord}
}

// NewGRPCServer returns a grpc.Server with the Pathfinder service registered
// and request logging installed.
func NewGRPCServer(s *Server, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(logUnary))
	gs := grpc.NewServer(opts...)
	RegisterPathfinderServer(gs, s)
	return gs
}

// FindPath handles {start:[x,y,z], target:[x,y,z]} and replies with
// {job_id, found, cost, expanded, path:[[x,y,z],...]}.
func (s *Server) FindPath(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start, err := coordField(req, "start")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	target, err := coordField(req, "target")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	delivered := make(chan []*grid.Cell, 1)
	job, err := s.coord.Request(start, target, func(path []*grid.Cell) {
		delivered <- path
	})
	if err != nil {
		return nil, requestError(err)
	}

	var path []*grid.Cell
	select {
	case path = <-delivered:
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	}

	if err := job.Err(); err != nil {
		return nil, status.Errorf(codes.Internal, "search failed: %v", err)
	}

	res := job.Result()
	cells := make([]any, len(path))
	for i, c := range path {
		cells[i] = coordValue(c.Coord())
	}

	out, err := structpb.NewStruct(map[string]any{
		"job_id":   string(job.ID()),
		"found":    res.Found,
		"cost":     res.TotalCost,
		"expanded": res.ExpandedCells,
		"path":     cells,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// Stats replies with the coordinator's job counts.
func (s *Server) Stats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	st := s.coord.Stats()
	out, err := structpb.NewStruct(map[string]any{
		"pending":   st.Pending,
		"running":   st.Running,
		"done":      st.Done,
		"delivered": st.Delivered,
		"workers":   st.Workers,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func requestError(err error) error {
	switch {
	case errors.Is(err, coordinator.ErrStopped):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, searchjob.ErrNilCell),
		errors.Is(err, searchjob.ErrOutsideGrid),
		errors.Is(err, searchjob.ErrNotWalkable):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		slog.Warn("RPC failed",
			"method", info.FullMethod,
			"code", status.Code(err),
			"error", err)
		return resp, err
	}
	slog.Debug("RPC served", "method", info.FullMethod, "duration", time.Since(start))
	return resp, nil
}

// Helpers

func coordValue(c types.Coord) []any {
	return []any{c.X, c.Y, c.Z}
}

func coordField(s *structpb.Struct, name string) (types.Coord, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return types.Coord{}, fmt.Errorf("missing field %q", name)
	}
	return decodeCoord(v)
}

func decodeCoord(v *structpb.Value) (types.Coord, error) {
	list := v.GetListValue()
	if list == nil || len(list.GetValues()) != 3 {
		return types.Coord{}, errors.New("coordinate must be a list of three integers")
	}

	var xyz [3]int
	for i, e := range list.GetValues() {
		n, ok := e.GetKind().(*structpb.Value_NumberValue)
		if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
			return types.Coord{}, fmt.Errorf("coordinate component %d is not an integer", i)
		}
		xyz[i] = int(n.NumberValue)
	}
	return types.Coord{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

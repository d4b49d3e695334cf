package server

import (
	"context"
	"fmt"

	"github.com/ChuLiYu/gridpath/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// PathResponse is the decoded FindPath reply.
type PathResponse struct {
	JobID    types.JobID
	Found    bool
	Cost     float64
	Expanded int
	Path     []types.Coord
}

// StatsResponse is the decoded Stats reply.
type StatsResponse struct {
	Pending   int
	Running   int
	Done      int
	Delivered int
	Workers   int
}

// Client calls the Pathfinder service.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// FindPath asks the server for a path and waits for the result.
func (c *Client) FindPath(ctx context.Context, start, target types.Coord) (*PathResponse, error) {
	in, err := structpb.NewStruct(map[string]any{
		"start":  coordValue(start),
		"target": coordValue(target),
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FindPathMethod, in, out); err != nil {
		return nil, err
	}

	fields := out.GetFields()
	resp := &PathResponse{
		JobID:    types.JobID(fields["job_id"].GetStringValue()),
		Found:    fields["found"].GetBoolValue(),
		Cost:     fields["cost"].GetNumberValue(),
		Expanded: int(fields["expanded"].GetNumberValue()),
	}
	for _, v := range fields["path"].GetListValue().GetValues() {
		c, err := decodeCoord(v)
		if err != nil {
			return nil, fmt.Errorf("decode path: %w", err)
		}
		resp.Path = append(resp.Path, c)
	}
	return resp, nil
}

// Stats fetches the server's coordinator counts.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, StatsMethod, &structpb.Struct{}, out); err != nil {
		return nil, err
	}

	fields := out.GetFields()
	return &StatsResponse{
		Pending:   int(fields["pending"].GetNumberValue()),
		Running:   int(fields["running"].GetNumberValue()),
		Done:      int(fields["done"].GetNumberValue()),
		Delivered: int(fields["delivered"].GetNumberValue()),
		Workers:   int(fields["workers"].GetNumberValue()),
	}, nil
}

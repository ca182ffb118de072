package zk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	szk "github.com/samuel/go-zookeeper/zk"
	log "github.com/sirupsen/logrus"
)

// Client is a read-only view of zookeeper. Unlike the underlying samuel zk client, it takes a
// context in every call. Snapshots never write to zookeeper, so there are no write operations.
type Client interface {
	Get(ctx context.Context, path string) ([]byte, *szk.Stat, error)
	GetJSON(ctx context.Context, path string, obj interface{}) (*szk.Stat, error)
	Children(ctx context.Context, path string) ([]string, *szk.Stat, error)
	Exists(ctx context.Context, path string) (bool, *szk.Stat, error)
	Close() error
}

var _ Client = (*PooledClient)(nil)

type requestMethod int

const (
	methodGet requestMethod = iota
	methodChildren
	methodExists
)

func (m requestMethod) String() string {
	switch m {
	case methodGet:
		return "get"
	case methodChildren:
		return "children"
	case methodExists:
		return "exists"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

type pooledRequest struct {
	path     string
	method   requestMethod
	respChan chan pooledResp
}

type pooledResp struct {
	content  []byte
	exists   bool
	children []string
	stats    *szk.Stat
	err      error
}

// PooledClient is a Client that spreads reads over a pool of connections. Reading every
// partition state of a large cluster from several goroutines is substantially faster this way
// than over a single samuel connection.
type PooledClient struct {
	connections []*szk.Conn
	requestChan chan pooledRequest
}

// NewPooledClient connects poolSize sessions to the argument addresses.
func NewPooledClient(
	zkAddrs []string,
	sessionTimeout time.Duration,
	logger szk.Logger,
	poolSize int,
) (*PooledClient, error) {
	if poolSize < 1 {
		return nil, fmt.Errorf("Pool size must be positive, got %d", poolSize)
	}

	connections := []*szk.Conn{}
	log.Debugf("Creating zk client with addresses %+v (pool size %d)", zkAddrs, poolSize)

	for i := 0; i < poolSize; i++ {
		conn, _, err := szk.Connect(
			zkAddrs,
			sessionTimeout,
			szk.WithLogger(logger),
		)
		if err != nil {
			for _, opened := range connections {
				opened.Close()
			}
			return nil, fmt.Errorf("Error connecting to zkAddr %+v: %w", zkAddrs, err)
		}
		connections = append(connections, conn)
	}

	requestChan := make(chan pooledRequest)

	for i, conn := range connections {
		go serveRequests(i, conn, requestChan)
	}

	return &PooledClient{
		connections: connections,
		requestChan: requestChan,
	}, nil
}

func serveRequests(index int, conn *szk.Conn, requestChan <-chan pooledRequest) {
	log.Debugf("Starting zk connection %d", index)

	for request := range requestChan {
		resp := pooledResp{}

		switch request.method {
		case methodGet:
			resp.content, resp.stats, resp.err = conn.Get(request.path)
		case methodChildren:
			resp.children, resp.stats, resp.err = conn.Children(request.path)
		case methodExists:
			resp.exists, resp.stats, resp.err = conn.Exists(request.path)
		default:
			resp.err = fmt.Errorf("Unrecognized method: %s", request.method)
		}

		// Buffered, so an abandoned request doesn't block the worker.
		request.respChan <- resp
	}
}

func (c *PooledClient) do(
	ctx context.Context,
	method requestMethod,
	path string,
) (pooledResp, error) {
	respChan := make(chan pooledResp, 1)
	log.Debugf("zk %s %s", method, path)

	select {
	case c.requestChan <- pooledRequest{path: path, method: method, respChan: respChan}:
	case <-ctx.Done():
		return pooledResp{}, ctx.Err()
	}

	select {
	case resp := <-respChan:
		return resp, resp.err
	case <-ctx.Done():
		return pooledResp{}, ctx.Err()
	}
}

// Get returns the value at the argument zk path.
func (c *PooledClient) Get(
	ctx context.Context,
	path string,
) ([]byte, *szk.Stat, error) {
	resp, err := c.do(ctx, methodGet, path)
	return resp.content, resp.stats, err
}

// GetJSON unmarshals the JSON content at the argument zk path into an object.
func (c *PooledClient) GetJSON(
	ctx context.Context,
	path string,
	obj interface{},
) (*szk.Stat, error) {
	data, stats, err := c.Get(ctx, path)
	if err != nil {
		return stats, err
	}

	if err := json.Unmarshal(data, obj); err != nil {
		return stats, fmt.Errorf("Error decoding JSON at path %s: %w", path, err)
	}
	return stats, nil
}

// Children gets the names of all children of the node at the argument zk path.
func (c *PooledClient) Children(
	ctx context.Context,
	path string,
) ([]string, *szk.Stat, error) {
	resp, err := c.do(ctx, methodChildren, path)
	return resp.children, resp.stats, err
}

// Exists returns whether a node exists at the argument zk path.
func (c *PooledClient) Exists(
	ctx context.Context,
	path string,
) (bool, *szk.Stat, error) {
	resp, err := c.do(ctx, methodExists, path)
	return resp.exists, resp.stats, err
}

// Close stops the workers and closes every connection in the pool.
func (c *PooledClient) Close() error {
	close(c.requestChan)

	closeChan := make(chan struct{}, len(c.connections))

	for index, conn := range c.connections {
		log.Debugf("Closing zk connection %d/%d", index+1, len(c.connections))

		go func(innerConn *szk.Conn) {
			innerConn.Close()
			closeChan <- struct{}{}
		}(conn)
	}

	for i := 0; i < len(c.connections); i++ {
		<-closeChan
	}

	return nil
}

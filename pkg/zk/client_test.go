package zk

import (
	"context"
	"fmt"
	"testing"
	"time"

	szk "github.com/samuel/go-zookeeper/zk"
	"github.com/segmentio/goalctl/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPooledClientRead(t *testing.T) {
	zkAddr := util.RequireZK(t)

	zkConn, _, err := szk.Connect([]string{zkAddr}, 5*time.Second)
	require.NoError(t, err)
	defer zkConn.Close()

	prefix := testPrefix("pooled-client-read")

	pathTuples := []PathTuple{
		{Path: fmt.Sprintf("/%s", prefix)},
		{Path: fmt.Sprintf("/%s/ids", prefix)},
	}
	for i := 1; i <= 4; i++ {
		pathTuples = append(
			pathTuples,
			PathTuple{
				Path: fmt.Sprintf("/%s/ids/%d", prefix, i),
				Obj:  map[string]interface{}{"rack": fmt.Sprintf("zone%d", i)},
			},
			PathTuple{
				Path: fmt.Sprintf("/%s/ids/%d/state", prefix, i),
			},
		)
	}
	CreateNodes(t, zkConn, pathTuples)

	pooledClient, err := NewPooledClient(
		[]string{zkAddr},
		5*time.Second,
		&DebugLogger{},
		2,
	)
	require.NoError(t, err)
	defer pooledClient.Close()

	ctx := context.Background()
	doneChan := make(chan error, 4)

	for i := 1; i <= 4; i++ {
		go func(index int) {
			info := map[string]string{}
			if _, err := pooledClient.GetJSON(
				ctx,
				fmt.Sprintf("/%s/ids/%d", prefix, index),
				&info,
			); err != nil {
				doneChan <- err
				return
			}
			if info["rack"] != fmt.Sprintf("zone%d", index) {
				doneChan <- fmt.Errorf("Unexpected rack for broker %d: %s", index, info["rack"])
				return
			}

			children, _, err := pooledClient.Children(
				ctx,
				fmt.Sprintf("/%s/ids/%d", prefix, index),
			)
			if err == nil && len(children) != 1 {
				err = fmt.Errorf("Unexpected children: %+v", children)
			}
			doneChan <- err
		}(i)
	}

	timeout := time.NewTimer(10 * time.Second)
	for i := 0; i < 4; i++ {
		select {
		case err := <-doneChan:
			require.NoError(t, err)
		case <-timeout.C:
			require.FailNow(t, "Timed out waiting for results")
		}
	}

	children, _, err := pooledClient.Children(ctx, fmt.Sprintf("/%s/ids", prefix))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2", "3", "4"}, children)

	exists, _, err := pooledClient.Exists(ctx, fmt.Sprintf("/%s/ids/1/state", prefix))
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, _, err = pooledClient.Exists(ctx, fmt.Sprintf("/%s/ids/5", prefix))
	assert.NoError(t, err)
	assert.False(t, exists)

	_, _, err = pooledClient.Get(ctx, fmt.Sprintf("/%s/ids/5", prefix))
	assert.Equal(t, szk.ErrNoNode, err)
}

func TestPooledClientCancelled(t *testing.T) {
	zkAddr := util.RequireZK(t)

	pooledClient, err := NewPooledClient(
		[]string{zkAddr},
		5*time.Second,
		&DebugLogger{},
		1,
	)
	require.NoError(t, err)
	defer pooledClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = pooledClient.Children(ctx, "/")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPooledClientPoolSize(t *testing.T) {
	_, err := NewPooledClient([]string{"localhost:2181"}, time.Second, &DebugLogger{}, 0)
	assert.Error(t, err)
}

func TestRequestMethodString(t *testing.T) {
	assert.Equal(t, "get", methodGet.String())
	assert.Equal(t, "children", methodChildren.String())
	assert.Equal(t, "exists", methodExists.String())
	assert.Equal(t, "unknown(7)", requestMethod(7).String())
}

func testPrefix(name string) string {
	return util.RandomString(fmt.Sprintf("zk-test-%s", name), 6)
}

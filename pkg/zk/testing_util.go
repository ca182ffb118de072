package zk

import (
	"encoding/json"
	"testing"

	szk "github.com/samuel/go-zookeeper/zk"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// PathTuple is a node to create in a test zookeeper. A nil Obj creates an empty node.
type PathTuple struct {
	Path string
	Obj  interface{}
}

// CreateNode creates a single node at the argument path. For testing purposes only.
func CreateNode(t *testing.T, zkConn *szk.Conn, path string, obj interface{}) {
	var data []byte
	var err error

	if obj != nil {
		data, err = json.Marshal(obj)
		require.NoError(t, err)
	}

	log.Debugf("Creating test node %s", path)

	_, err = zkConn.Create(path, data, 0, szk.WorldACL(szk.PermAll))
	require.NoError(t, err)
}

// CreateNodes creates the argument nodes in order, so parents must come before children.
func CreateNodes(t *testing.T, zkConn *szk.Conn, pathTuples []PathTuple) {
	for _, tuple := range pathTuples {
		CreateNode(t, zkConn, tuple.Path, tuple.Obj)
	}
}

package optimizer

import (
	"encoding/json"

	"github.com/segmentio/goalctl/pkg/util"
)

// Reassignment is the partition reassignment document accepted by
// kafka-reassign-partitions.sh and the /admin/reassign_partitions znode.
type Reassignment struct {
	Version    int                     `json:"version"`
	Partitions []ReassignmentPartition `json:"partitions"`
}

// ReassignmentPartition is the target assignment of a single partition; the first replica is
// the preferred leader.
type ReassignmentPartition struct {
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
	Replicas  []int  `json:"replicas"`
}

// NewReassignment converts proposals into a reassignment document. Leadership-only proposals
// are included too since the replica order sets the preferred leader.
func NewReassignment(proposals []ExecutionProposal) Reassignment {
	reassignment := Reassignment{
		Version:    1,
		Partitions: []ReassignmentPartition{},
	}

	for _, proposal := range proposals {
		reassignment.Partitions = append(
			reassignment.Partitions,
			ReassignmentPartition{
				Topic:     proposal.TopicPartition.Topic,
				Partition: proposal.TopicPartition.Partition,
				Replicas:  util.CopyInts(proposal.NewReplicas),
			},
		)
	}

	return reassignment
}

// ReassignmentJSON returns the reassignment document for the proposals as indented JSON.
func ReassignmentJSON(proposals []ExecutionProposal) ([]byte, error) {
	return json.MarshalIndent(NewReassignment(proposals), "", "  ")
}

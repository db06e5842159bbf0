package mongo

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
)

// uninitializedSentinel is the exact OperationFailure message the server
// returns before a replica set has ever been initiated.
const uninitializedSentinel = "no replset config has been received"

// memberHostnames returns every member's MongoDB-visible DNS name, in order.
func memberHostnames(c *mdbv1.MongoCluster) []string {
	hosts := make([]string, c.Spec.Replicas)
	for i := 0; i < c.Spec.Replicas; i++ {
		hosts[i] = c.MemberHostname(i)
	}
	return hosts
}

type replSetMember struct {
	ID   int    `bson:"_id"`
	Host string `bson:"host"`
}

func memberConfig(hosts []string) []replSetMember {
	members := make([]replSetMember, len(hosts))
	for i, h := range hosts {
		members[i] = replSetMember{ID: i, Host: h}
	}
	return members
}

// CheckOrCreateReplicaSet implements the replSetGetStatus / reconfig /
// initiate state machine.
func (o *Orchestrator) CheckOrCreateReplicaSet(ctx context.Context, c *mdbv1.MongoCluster) error {
	key := keyOf(c)
	client, err := o.clientFor(key, c)
	if err != nil {
		return errors.Wrap(err, "building mongo client")
	}

	var status bson.M
	err = withRetry(func() error {
		return client.Database("admin").RunCommand(ctx, bson.D{{Key: "replSetGetStatus", Value: 1}}).Decode(&status)
	})

	if err == nil {
		return o.handleStatus(ctx, client, c, status)
	}

	if isUninitializedFailure(err) {
		return o.initiate(ctx, c)
	}

	return errors.Wrap(err, "replSetGetStatus")
}

func (o *Orchestrator) handleStatus(ctx context.Context, client *mongo.Client, c *mdbv1.MongoCluster, status bson.M) error {
	ok, _ := status["ok"].(float64)
	if ok != 1 {
		return ErrInvalidResponse
	}
	members, _ := status["members"].(bson.A)
	n := len(members)
	if n == c.Spec.Replicas {
		return nil
	}
	return o.reconfigure(ctx, client, c)
}

func (o *Orchestrator) reconfigure(ctx context.Context, client *mongo.Client, c *mdbv1.MongoCluster) error {
	config := bson.D{
		{Key: "_id", Value: c.Name},
		{Key: "version", Value: 2},
		{Key: "members", Value: memberConfig(memberHostnames(c))},
	}
	var reply bson.M
	err := withRetry(func() error {
		return client.Database("admin").RunCommand(ctx, bson.D{
			{Key: "replSetReconfig", Value: config},
			{Key: "force", Value: true},
		}).Decode(&reply)
	})
	if err != nil {
		return errors.Wrap(err, "replSetReconfig")
	}
	if ok, _ := reply["ok"].(float64); ok != 1 {
		return ErrInvalidResponse
	}
	return nil
}

// initiate sends replSetInitiate directly to the first member's hostname,
// bypassing the cache - a fresh client is opened here every time rather
// than reusing a cached one, matching the source's own unexplained choice
// (see DESIGN.md open question).
func (o *Orchestrator) initiate(ctx context.Context, c *mdbv1.MongoCluster) error {
	hosts := memberHostnames(c)
	if len(hosts) == 0 {
		return errors.New("mongo: no members configured")
	}

	firstMemberClient, err := mongo.NewClient(newOptionsURI(hosts[0], c))
	if err != nil {
		return errors.Wrap(err, "building bootstrap client")
	}
	connectCtx, cancel := context.WithTimeout(ctx, clientTimeout)
	defer cancel()
	if err := firstMemberClient.Connect(connectCtx); err != nil {
		return errors.Wrap(err, "connecting bootstrap client")
	}
	defer func() { _ = firstMemberClient.Disconnect(context.Background()) }()

	config := bson.D{
		{Key: "_id", Value: c.Name},
		{Key: "members", Value: memberConfig(hosts)},
	}
	var reply bson.M
	err = withRetry(func() error {
		return firstMemberClient.Database("admin").RunCommand(ctx, bson.D{
			{Key: "replSetInitiate", Value: config},
		}).Decode(&reply)
	})
	if err != nil {
		return errors.Wrap(err, "replSetInitiate")
	}
	if ok, _ := reply["ok"].(float64); ok != 1 {
		return ErrInvalidResponse
	}
	return nil
}

// UserExists reports whether username already exists in the admin database.
func (o *Orchestrator) UserExists(ctx context.Context, c *mdbv1.MongoCluster, username string) (bool, error) {
	key := keyOf(c)
	client, err := o.clientFor(key, c)
	if err != nil {
		return false, err
	}
	var reply bson.M
	err = withRetry(func() error {
		return client.Database("admin").RunCommand(ctx, bson.D{
			{Key: "usersInfo", Value: username},
		}).Decode(&reply)
	})
	if err != nil {
		return false, errors.Wrap(err, "usersInfo")
	}
	users, _ := reply["users"].(bson.A)
	return len(users) > 0, nil
}

// CreateUsersIfMissing builds the admin-creation payload from the
// AdminSecret, looking the user up first (userExists) before ever issuing
// createUser - preserving the original's look-before-create call order.
func (o *Orchestrator) CreateUsersIfMissing(ctx context.Context, c *mdbv1.MongoCluster) error {
	exists, err := o.UserExists(ctx, c, "admin")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	key := keyOf(c)
	client, err := o.clientFor(key, c)
	if err != nil {
		return err
	}

	var reply bson.M
	err = withRetry(func() error {
		return client.Database("admin").RunCommand(ctx, bson.D{
			{Key: "createUser", Value: "admin"},
			{Key: "pwd", Value: saslprep(c.Spec.Users.AdminPassword)},
			{Key: "roles", Value: bson.A{bson.D{{Key: "role", Value: "root"}, {Key: "db", Value: "admin"}}}},
		}).Decode(&reply)
	})
	if err != nil {
		return errors.Wrap(err, "createUser admin")
	}
	if ok, _ := reply["ok"].(float64); ok != 1 {
		return ErrInvalidResponse
	}
	return nil
}

func isUninitializedFailure(err error) bool {
	cmdErr, ok := errors.Cause(err).(mongo.CommandError)
	if !ok {
		return false
	}
	return strings.Contains(cmdErr.Message, uninitializedSentinel)
}

package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/internal/cluster"
)

const clientTimeout = 120 * time.Second

// clientFor returns the cached client for key, creating and registering it
// with the four driver listeners on first use. The client is built on first
// need, connected right away, and reused across commands; it is the sole
// owner of the driver's connection pool.
func (o *Orchestrator) clientFor(key cluster.Key, c *mdbv1.MongoCluster) (*mongo.Client, error) {
	if existing, ok := o.clients.get(key); ok {
		return existing, nil
	}

	hosts := memberHostnames(c)
	uri := fmt.Sprintf("mongodb://%s/?connectTimeoutMS=%d&serverSelectionTimeoutMS=%d",
		joinHosts(hosts), clientTimeout.Milliseconds(), clientTimeout.Milliseconds())

	client, err := mongo.NewClient(
		options.Client().
			ApplyURI(uri).
			SetConnectTimeout(clientTimeout).
			SetServerSelectionTimeout(clientTimeout).
			SetAuth(adminCredential(c.Spec.Users.AdminPassword)).
			SetMonitor(o.commandLogger()).
			SetServerMonitor(o.topologyAndHeartbeatMonitor(key, c)),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	o.clients.set(key, client)
	return client, nil
}

func (o *Orchestrator) commandLogger() *event.CommandMonitor {
	log := o.log
	return &event.CommandMonitor{
		Started: func(_ context.Context, evt *event.CommandStartedEvent) {
			log.Debugw("mongo command started", "command", evt.CommandName, "database", evt.DatabaseName)
		},
		Succeeded: func(_ context.Context, evt *event.CommandSucceededEvent) {
			log.Debugw("mongo command succeeded", "command", evt.CommandName, "durationMs", evt.Duration.Milliseconds())
		},
		Failed: func(_ context.Context, evt *event.CommandFailedEvent) {
			log.Debugw("mongo command failed", "command", evt.CommandName, "failure", evt.Failure)
		},
	}
}

func joinHosts(hosts []string) string {
	out := ""
	for i, h := range hosts {
		if i > 0 {
			out += ","
		}
		out += h
	}
	return out
}

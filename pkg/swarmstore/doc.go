// Package swarmstore persists the state of multi-agent swarms in Redis.
//
// # Overview
//
// A swarm is one multi-agent coordination session. The store tracks its
// lifecycle state, its teams and agents, a shared knowledge blackboard, and
// which consumers currently hold which swarm-scoped resources. The
// orchestration engine decides when to call these operations; the store only
// records the outcome.
//
// # Core Concepts
//
// Swarm records move through SwarmState values. The store accepts any known
// state at any time; it does not enforce transition rules.
//
// Secondary indexes (by state, by owning user) are Redis sets derived from the
// swarm records. Index membership is a hint: GetSwarmsByState and
// GetSwarmsByUser re-read every candidate, drop ids whose record no longer
// matches, and prune them from the set. This lazy repair is the only cleanup
// mechanism.
//
// Teams, agents and blackboard items are records scoped to a swarm, each with a
// membership set. Resource allocations are plain sets of consumer ids; several
// consumers may hold the same resource at once.
//
// # Failure Semantics
//
// Reads (Get*, List*, GetResourceAllocation) never return errors. A missing
// record and a backend failure both produce nil or an empty slice, and the
// failure is logged. Writes log and return their error; nothing is retried.
// Update operations return a *NotFoundError when the target does not exist.
//
// # Consistency
//
// When the Backend implements Transactional, a record and its index or
// membership entries are written in one MULTI/EXEC. Read-modify-write updates
// hold a per-record lock inside one Store, so concurrent updates through the
// same Store do not lose fields. Writers in other processes are not
// coordinated and the last write wins.
//
// Every key carries DefaultTTL (7 days). Point reads of a primary record refresh
// its TTL; bulk blackboard reads do not. Sets expire independently of the
// records they reference, so an absent key always reads as "never existed".
//
// # Usage Example
//
//	opts, _ := redis.ParseURL("redis://localhost:6379")
//	backend := swarmstore.NewRedisBackend(opts)
//	defer backend.Close()
//
//	store, err := swarmstore.New(backend, swarmstore.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = store.CreateSwarm(ctx, "s1", &swarmstore.Swarm{
//		State:    swarmstore.StateInitializing,
//		Metadata: swarmstore.SwarmMetadata{UserID: "u1"},
//	})
//	_ = store.UpdateSwarmState(ctx, "s1", swarmstore.StateActive)
//	active := store.ListActiveSwarms(ctx)
//
// # Redis Schema
//
//	swarm:{swarm_id}                                  JSON  Swarm
//	swarm_index:state:{state}                         SET   swarm ids
//	swarm_index:user:{user_id}                        SET   swarm ids
//	swarm:{swarm_id}:team:{team_id}                   JSON  SwarmTeam
//	swarm:{swarm_id}:teams                            SET   team ids
//	swarm:{swarm_id}:agent:{agent_id}                 JSON  SwarmAgent
//	swarm:{swarm_id}:agents                           SET   agent ids
//	swarm:{swarm_id}:blackboard:{item_id}             JSON  BlackboardItem
//	swarm:{swarm_id}:blackboard                       SET   item ids
//	swarm:{swarm_id}:resource:{resource_id}:allocations SET consumer ids
package swarmstore

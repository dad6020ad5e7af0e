// Package evsink persists structured events into a remote document store,
// exactly once per unique event.
//
// Every incoming event is written with an upsert keyed by a deterministic
// document id, so a retried write after a partial success is harmless.
// Failures are classified and either retried, abandoned for that one event,
// or latch the sink into a permanently disabled state.
//
// # Core Components
//
//   - Event: the record the producer hands over, with a type tag and a content hash
//   - Store: the remote document store (elastic, opensearch, cxdb, memory)
//   - Writer: performs one upsert attempt with a fixed timeout
//   - Classify / RetryPolicy: map a failure to retry, abandon or disable
//   - EventSink: gates, retries and reports each event
//
// # Quick Start
//
//	store, err := elastic.NewStore(elastic.Config{Endpoint: "http://localhost:9200"})
//	if err != nil {
//	    return err
//	}
//	sink := evsink.New(cfg, evsink.WithStore(store))
//	sink.Handle(ctx, evsink.NewEvent("IP_ADDRESS", evsink.Record{"data": "10.0.0.1"}))
//
// # Design Principles
//
//   - Handle never returns an error and never panics: failures go to the logger and Observer
//   - Credential, permission and endpoint failures disable the sink for the rest of its life
//   - Unrecognized failures abandon only the current event
package evsink

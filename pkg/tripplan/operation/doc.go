// Package operation turns every planner mutation into a first-class,
// reversible object.
//
// An Engine binds operations to a store, the validation pipelines, the
// event bus and the journal. Engine.New returns a pending Operation;
// Execute validates its payload, applies the mutation inside a store
// transaction and publishes the matching event; Undo restores every entity
// the mutation touched and publishes operation.undone.
//
//	eng := operation.NewEngine(st, operation.WithBus(bus))
//	op, err := eng.New(operation.TripCreate, map[string]any{
//		"destination": "Lisbon",
//		"start_date":  "2025-05-01",
//		"end_date":    "2025-05-10",
//		"budget":      1000,
//	})
//	if err != nil {
//		return err
//	}
//	if err := op.Execute(ctx); err != nil {
//		return err
//	}
//	fmt.Println(op.Result()["share_code"])
//	_ = op.Undo(ctx)
//
// The Invoker adds a bounded undo/redo history on top of the engine.
package operation

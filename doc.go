// Package graflow executes visual workflow graphs against inbound
// tasks.
//
// A flow is a directed graph of typed nodes. Data edges copy values
// between node ports; execution edges decide which node runs next. A
// run starts at the unique condition node whose return text matches the
// task's type, seeds an execution context from the task, and walks the
// graph until no execution edge remains.
//
// Basic usage:
//
//	eng := graflow.NewEngine(graflow.Config{
//	    Observer: graflow.NewLoggingObserver(nil),
//	})
//
//	graph := graflow.NewGraph().
//	    Start("start", "invoice_email", nil).
//	    Text("note", "invoice received").
//	    ConsoleLog("log").
//	    Connect("note", "log", "note-output", "input-value").
//	    Flow("start", "note").
//	    Flow("note", "log").
//	    Build()
//
//	result := eng.ExecuteFlow(ctx, graph, task, nil)
//	if !result.Success {
//	    log.Fatal(result.Error)
//	}
//
// The engine holds no per-run state, so one Engine may serve concurrent
// runs. Remote capabilities (email transport, OCR, LLM completion) and
// the backend config for apiCall nodes are supplied by the caller;
// telemetry flows through the Observer interface, optionally persisted
// via NewSQLiteEventStore behind NewRecorder.
package graflow

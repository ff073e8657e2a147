package codegen

import (
	"fmt"

	"github.com/arolang/aro/internal/aroerr"
	"github.com/arolang/aro/internal/ast"
)

// buildMain synthesizes the program's entry function: runtime init,
// embedded OpenAPI contract and precompiled-plugin registration, event
// handler/observer wiring, one context per Application-Start feature
// set run in program order, a final await-pending-events drain, and
// orderly shutdown.
func buildMain(program ast.Program, pool *StringPool) (*Function, []*aroerr.Error) {
	fn := &Function{Name: "main", ReturnType: "i32"}
	entry := fn.addBlock("entry")

	entry.call("", "@runtime_init")
	entry.call("", "@openapi_register_embedded_document")
	entry.call("", "@plugin_load_precompiled")

	regs := collectRegistrations(program)
	var errs []*aroerr.Error

	for _, h := range regs.handlers {
		eventType := h.HandlerEventType()
		if eventType == "" {
			errs = append(errs, aroerr.Compilation(aroerr.KindInvalidExpression, h.Span, fmt.Sprintf("handler feature set %q has no event type", h.Name)))
			continue
		}
		nameRef := pool.Intern(eventType)
		fnName := functionName(h.Name, h.BusinessActivity, false)
		entry.call("", "@event_bus_subscribe", nameRef, "@"+fnName)
	}

	for _, o := range regs.observers {
		repo := o.ObserverRepository()
		if repo == "" {
			errs = append(errs, aroerr.Compilation(aroerr.KindInvalidExpression, o.Span, fmt.Sprintf("observer feature set %q has no repository", o.Name)))
			continue
		}
		nameRef := pool.Intern(repo)
		fnName := functionName(o.Name, o.BusinessActivity, false)
		entry.call("", "@repository_subscribe_observer", nameRef, "@"+fnName)
	}

	if len(regs.entries) == 0 {
		errs = append(errs, aroerr.Compilation(aroerr.KindNoEntryPoint, ast.Span{}, "program has no Application-Start feature set"))
	}

	// Every entry point runs in program order with its own context; all
	// but the last are destroyed immediately, and the last becomes the
	// application's main context whose response is printed at exit.
	mainCtx := ""
	for i, e := range regs.entries {
		fnName := functionName(e.Name, e.BusinessActivity, true)
		ctxVar := fmt.Sprintf("%%main_ctx%d", i)
		entry.call(ctxVar, "@context_create")
		entry.call(fmt.Sprintf("%%main_entry_result%d", i), "@"+fnName, ctxVar)
		if i < len(regs.entries)-1 {
			entry.call("", "@context_destroy", ctxVar)
		} else {
			mainCtx = ctxVar
		}
	}

	entry.call("", "@event_bus_await_pending", fmt.Sprint(int64(10*1000)))
	if mainCtx != "" {
		entry.call("", "@context_print_response", mainCtx)
		entry.call("", "@context_destroy", mainCtx)
	}
	entry.call("", "@runtime_shutdown")
	entry.ret("0")

	return fn, errs
}

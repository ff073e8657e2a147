package codegen

import (
	"fmt"

	"github.com/arolang/aro/internal/aroerr"
	"github.com/arolang/aro/internal/ast"
)

// lowerer carries the per-function state statement lowering threads
// through: the function being built, the shared string pool, and the
// error_exit block every action call may branch to.
type lowerer struct {
	fn       *Function
	pool     *StringPool
	errExit  string
	errs     []*aroerr.Error
	resultPtr string
}

// lowerFeatureSet builds one feature-set function: entry block allocating
// result_ptr, a normal_return block that loads and returns it, and an
// error_exit block that prints the error and returns null. A statement
// that cannot be lowered is reported and skipped — lowering continues
// with the rest.
func lowerFeatureSet(fs ast.FeatureSet, pool *StringPool) (*Function, []*aroerr.Error) {
	name := functionName(fs.Name, fs.BusinessActivity, fs.IsEntryPoint())
	fn := &Function{
		Name:       name,
		Params:     []Param{{Name: "%ctx", Type: "ptr"}},
		ReturnType: "ptr",
	}

	entry := fn.addBlock("entry")
	entry.alloca("%result_ptr", "ptr")
	entry.store("null", "%result_ptr", "ptr")

	lw := &lowerer{fn: fn, pool: pool, errExit: "error_exit", resultPtr: "%result_ptr"}
	cur := entry
	for i, stmt := range fs.Statements {
		prefix := fmt.Sprintf("s%d", i)
		next, err := lw.lowerStatement(cur, stmt, prefix)
		if err != nil {
			lw.errs = append(lw.errs, err)
			continue
		}
		cur = next
	}
	cur.br("normal_return")

	normalReturn := fn.addBlock("normal_return")
	normalReturn.load("%result", lw.resultPtr, "ptr")
	normalReturn.ret("%result")

	errorExit := fn.addBlock(lw.errExit)
	errorExit.call("", "@context_print_error", "%ctx")
	errorExit.ret("null")

	return fn, lw.errs
}

func (lw *lowerer) lowerStatement(cur *Block, stmt ast.Statement, prefix string) (*Block, *aroerr.Error) {
	switch stmt.Kind {
	case ast.KindAction:
		return lw.lowerAction(cur, stmt, prefix)
	case ast.KindMatch:
		return lw.lowerMatch(cur, stmt, prefix)
	case ast.KindForEach:
		return lw.lowerForEach(cur, stmt, prefix)
	case ast.KindPublish:
		return lw.lowerPublish(cur, stmt, prefix)
	case ast.KindRequire:
		return lw.lowerRequire(cur, stmt, prefix)
	}
	return cur, aroerr.Compilation(aroerr.KindInvalidExpression, stmt.Span, "unrecognized statement kind")
}

// lowerAction lowers a single action statement, handling an optional
// `when` guard first.
func (lw *lowerer) lowerAction(cur *Block, stmt ast.Statement, prefix string) (*Block, *aroerr.Error) {
	if !stmt.HasGuard {
		return lw.lowerActionCall(cur, stmt, prefix)
	}

	guardJSON, _, err := serializeOrFold(stmt.Guard)
	if err != nil {
		return cur, aroerr.Compilation(aroerr.KindInvalidExpression, stmt.Span, err.Error())
	}
	guardStr := lw.pool.Intern(guardJSON)

	skip := prefix + "_skip"
	body := prefix + "_body"
	merge := prefix + "_merge"

	cur.call("%"+prefix+"_guard", "@evaluate_when_guard", "%ctx", guardStr)
	cur.brCond("%"+prefix+"_guard", body, skip)

	bodyBlock := lw.fn.addBlock(body)
	after, aerr := lw.lowerActionCall(bodyBlock, stmt, prefix)
	if aerr != nil {
		return cur, aerr
	}
	after.br(merge)

	skipBlock := lw.fn.addBlock(skip)
	skipBlock.br(merge)

	return lw.fn.addBlock(merge), nil
}

// lowerActionCall builds the ResultDescriptor/ObjectDescriptor, binds
// modifiers and value source, resolves the verb, calls it, stores the
// result, and checks has-error.
func (lw *lowerer) lowerActionCall(cur *Block, stmt ast.Statement, prefix string) (*Block, *aroerr.Error) {
	resultBase := lw.pool.Intern(stmt.Result.Base)
	cur.alloca("%"+prefix+"_result_desc", "ResultDescriptor")
	cur.store(resultBase, "%"+prefix+"_result_desc.base", "ptr")
	lw.storeSpecifiers(cur, "%"+prefix+"_result_desc", stmt.Result.Specifiers)

	cur.alloca("%"+prefix+"_object_desc", "ObjectDescriptor")
	if stmt.HasObject {
		objectBase := lw.pool.Intern(stmt.Object.Noun.Base)
		cur.store(objectBase, "%"+prefix+"_object_desc.base", "ptr")
		cur.store(fmt.Sprintf("%d", int(stmt.Object.Preposition)), "%"+prefix+"_object_desc.preposition", "i32")
		lw.storeSpecifiers(cur, "%"+prefix+"_object_desc", stmt.Object.Noun.Specifiers)
	} else {
		cur.store("null", "%"+prefix+"_object_desc.base", "ptr")
		cur.store(fmt.Sprintf("%d", int(ast.PrepNone)), "%"+prefix+"_object_desc.preposition", "i32")
		lw.storeSpecifiers(cur, "%"+prefix+"_object_desc", nil)
	}

	if err := lw.bindModifiers(cur, stmt); err != nil {
		return cur, err
	}
	if err := lw.bindValueSource(cur, stmt, prefix); err != nil {
		return cur, err
	}

	cur.call("%"+prefix+"_value", "@action_"+sanitize(stmt.Verb), "%ctx", "%"+prefix+"_result_desc", "%"+prefix+"_object_desc")
	cur.store("%"+prefix+"_value", lw.resultPtr, "ptr")

	cur.call("%"+prefix+"_err", "@context_has_error", "%ctx")
	okBlock := lw.fn.addBlock(prefix + "_ok")
	cur.brCond("%"+prefix+"_err", lw.errExit, okBlock.Label)

	return okBlock, nil
}

// storeSpecifiers populates a descriptor's specifiers array and count: a
// stack-allocated pointer array holding one interned string per
// specifier, or null/0 when there are none.
func (lw *lowerer) storeSpecifiers(cur *Block, descVar string, specs []string) {
	if len(specs) == 0 {
		cur.store("null", descVar+".specifiers", "ptr")
		cur.store("0", descVar+".specifier_count", "i32")
		return
	}
	arr := descVar + "_specs"
	cur.alloca(arr, fmt.Sprintf("[%d x ptr]", len(specs)))
	for i, s := range specs {
		cur.store(lw.pool.Intern(s), fmt.Sprintf("%s.%d", arr, i), "ptr")
	}
	cur.store(arr, descVar+".specifiers", "ptr")
	cur.store(fmt.Sprintf("%d", len(specs)), descVar+".specifier_count", "i32")
}

func (lw *lowerer) bindModifiers(cur *Block, stmt ast.Statement) *aroerr.Error {
	if stmt.Query.HasWhere {
		cur.call("", "@variable_bind_string", "%ctx", lw.pool.Intern(varWhereField), lw.pool.Intern(stmt.Query.WhereField))
		cur.call("", "@variable_bind_string", "%ctx", lw.pool.Intern(varWhereOp), lw.pool.Intern(stmt.Query.WhereOp))
		valueJSON, _, err := serializeOrFold(stmt.Query.WhereValue)
		if err != nil {
			return aroerr.Compilation(aroerr.KindInvalidExpression, stmt.Span, err.Error())
		}
		cur.call("", "@evaluate_and_bind", "%ctx", lw.pool.Intern(varWhereValue), lw.pool.Intern(valueJSON))
	}
	if stmt.Query.HasAggregation {
		cur.call("", "@variable_bind_string", "%ctx", lw.pool.Intern(varAggregationType), lw.pool.Intern(stmt.Query.AggregationType))
		cur.call("", "@variable_bind_string", "%ctx", lw.pool.Intern(varAggregationField), lw.pool.Intern(stmt.Query.AggregationField))
	}
	if stmt.Query.HasBy {
		cur.call("", "@variable_bind_string", "%ctx", lw.pool.Intern(varByPattern), lw.pool.Intern(stmt.Query.ByPattern))
		cur.call("", "@variable_bind_string", "%ctx", lw.pool.Intern(varByFlags), lw.pool.Intern(stmt.Query.ByFlags))
	}
	if stmt.Range.HasTo {
		json, _, err := serializeOrFold(stmt.Range.To)
		if err != nil {
			return aroerr.Compilation(aroerr.KindInvalidExpression, stmt.Span, err.Error())
		}
		cur.call("", "@evaluate_and_bind", "%ctx", lw.pool.Intern(varTo), lw.pool.Intern(json))
	}
	if stmt.Range.HasWith {
		json, _, err := serializeOrFold(stmt.Range.With)
		if err != nil {
			return aroerr.Compilation(aroerr.KindInvalidExpression, stmt.Span, err.Error())
		}
		cur.call("", "@evaluate_and_bind", "%ctx", lw.pool.Intern(varWith), lw.pool.Intern(json))
	}
	return nil
}

func (lw *lowerer) bindValueSource(cur *Block, stmt ast.Statement, prefix string) *aroerr.Error {
	switch stmt.Value.Kind {
	case ast.ValueSourceNone:
		return nil
	case ast.ValueSourceLiteral:
		return lw.bindLiteral(cur, stmt.Value.Literal, stmt.Result.Base)
	case ast.ValueSourceExpression:
		json, _, err := serializeOrFold(stmt.Value.Expression)
		if err != nil {
			return aroerr.Compilation(aroerr.KindInvalidExpression, stmt.Span, err.Error())
		}
		cur.call("%"+prefix+"_expr", "@evaluate_expression", "%ctx", lw.pool.Intern(json))
		return nil
	case ast.ValueSourceSink:
		json, _, err := serializeOrFold(stmt.Value.Expression)
		if err != nil {
			return aroerr.Compilation(aroerr.KindInvalidExpression, stmt.Span, err.Error())
		}
		cur.call("", "@evaluate_and_bind", "%ctx", lw.pool.Intern(varResultExpression), lw.pool.Intern(json))
		return nil
	}
	return nil
}

func (lw *lowerer) bindLiteral(cur *Block, lit ast.LiteralValue, name string) *aroerr.Error {
	nameRef := lw.pool.Intern(name)
	switch lit.Kind {
	case ast.LitString:
		cur.call("", "@variable_bind_string", "%ctx", nameRef, lw.pool.Intern(lit.Str))
	case ast.LitInteger:
		cur.call("", "@variable_bind_int", "%ctx", nameRef, fmt.Sprintf("%d", lit.Int))
	case ast.LitFloat:
		cur.call("", "@variable_bind_double", "%ctx", nameRef, fmt.Sprintf("%v", lit.Float))
	case ast.LitBoolean:
		cur.call("", "@variable_bind_bool", "%ctx", nameRef, fmt.Sprintf("%v", lit.Bool))
	case ast.LitArray:
		cur.call("", "@variable_bind_array", "%ctx", nameRef)
	case ast.LitObject:
		cur.call("", "@variable_bind_dict", "%ctx", nameRef)
	case ast.LitNull:
		cur.call("", "@variable_bind_value", "%ctx", nameRef, "null")
	}
	return nil
}

// lowerMatch lowers a match statement: one body/next block pair per
// case, evaluating the pattern via match-pattern, falling through to the
// next case on a non-match, and an otherwise arm lowered unconditionally
// if present.
func (lw *lowerer) lowerMatch(cur *Block, stmt ast.Statement, prefix string) (*Block, *aroerr.Error) {
	end := prefix + "_end"
	subjectJSON := lw.pool.Intern(stmt.Subject.Base)

	for i, c := range stmt.Cases {
		caseBody := fmt.Sprintf("%s_case%d_body", prefix, i)
		caseNext := fmt.Sprintf("%s_case%d_next", prefix, i)

		patternJSON, _, err := serializeOrFold(c.Pattern)
		if err != nil {
			return cur, aroerr.Compilation(aroerr.KindInvalidExpression, stmt.Span, err.Error())
		}
		cur.call(fmt.Sprintf("%%%s_case%d_match", prefix, i), "@match_pattern", "%ctx", subjectJSON, lw.pool.Intern(patternJSON))
		cur.brCond(fmt.Sprintf("%%%s_case%d_match", prefix, i), caseBody, caseNext)

		bodyBlock := lw.fn.addBlock(caseBody)
		bodyCur := bodyBlock
		for j, inner := range c.Body {
			innerPrefix := fmt.Sprintf("%s_case%d_s%d", prefix, i, j)
			next, err := lw.lowerStatement(bodyCur, inner, innerPrefix)
			if err != nil {
				lw.errs = append(lw.errs, err)
				continue
			}
			bodyCur = next
		}
		bodyCur.br(end)

		cur = lw.fn.addBlock(caseNext)
	}

	if stmt.HasOtherwise {
		for j, inner := range stmt.Otherwise {
			innerPrefix := fmt.Sprintf("%s_otherwise_s%d", prefix, j)
			next, err := lw.lowerStatement(cur, inner, innerPrefix)
			if err != nil {
				lw.errs = append(lw.errs, err)
				continue
			}
			cur = next
		}
	}
	cur.br(end)

	return lw.fn.addBlock(end), nil
}

// lowerForEach lowers a for-each loop: cond/body/incr/end blocks around
// a 64-bit stack index.
func (lw *lowerer) lowerForEach(cur *Block, stmt ast.Statement, prefix string) (*Block, *aroerr.Error) {
	cond := prefix + "_cond"
	body := prefix + "_body"
	incr := prefix + "_incr"
	end := prefix + "_end"

	collVar := "%" + prefix + "_coll"
	cur.call(collVar, "@variable_resolve", "%ctx", lw.pool.Intern(stmt.Collection.Base))
	for k, spec := range stmt.Collection.Specifiers {
		next := fmt.Sprintf("%%%s_coll%d", prefix, k+1)
		cur.call(next, "@dict_get", collVar, lw.pool.Intern(spec))
		collVar = next
	}

	idxPtr := "%" + prefix + "_idx"
	cur.alloca(idxPtr, "i64")
	cur.store("0", idxPtr, "i64")
	cur.br(cond)

	condBlock := lw.fn.addBlock(cond)
	condBlock.load("%"+prefix+"_idx_val", idxPtr, "i64")
	condBlock.call("%"+prefix+"_count", "@array_count", collVar)
	condBlock.emit(Instr{Result: "%" + prefix + "_done", Opcode: "icmp_uge", Operands: []string{"%" + prefix + "_idx_val", "%" + prefix + "_count"}})
	condBlock.brCond("%"+prefix+"_done", end, body)

	bodyBlock := lw.fn.addBlock(body)
	bodyBlock.call("%"+prefix+"_elem", "@array_get", collVar, "%"+prefix+"_idx_val")
	bodyBlock.call("", "@variable_unbind", "%ctx", lw.pool.Intern(stmt.ItemVariable))
	bodyBlock.call("", "@variable_bind_value", "%ctx", lw.pool.Intern(stmt.ItemVariable), "%"+prefix+"_elem")
	if stmt.HasIndex {
		bodyBlock.call("%"+prefix+"_boxed_idx", "@value_create_int", "%"+prefix+"_idx_val")
		bodyBlock.call("", "@variable_bind_value", "%ctx", lw.pool.Intern(stmt.IndexVariable), "%"+prefix+"_boxed_idx")
	}

	loopCur := bodyBlock
	if stmt.HasFilter {
		filterJSON, _, err := serializeOrFold(stmt.Filter)
		if err != nil {
			return cur, aroerr.Compilation(aroerr.KindInvalidExpression, stmt.Span, err.Error())
		}
		loopCur.call("%"+prefix+"_filter", "@evaluate_when_guard", "%ctx", lw.pool.Intern(filterJSON))
		filterBody := lw.fn.addBlock(prefix + "_filter_body")
		loopCur.brCond("%"+prefix+"_filter", filterBody.Label, incr)
		loopCur = filterBody
	}

	for j, inner := range stmt.Body {
		innerPrefix := fmt.Sprintf("%s_body_s%d", prefix, j)
		next, err := lw.lowerStatement(loopCur, inner, innerPrefix)
		if err != nil {
			lw.errs = append(lw.errs, err)
			continue
		}
		loopCur = next
	}
	loopCur.br(incr)

	incrBlock := lw.fn.addBlock(incr)
	incrBlock.load("%"+prefix+"_idx_next_in", idxPtr, "i64")
	incrBlock.emit(Instr{Result: "%" + prefix + "_idx_next", Opcode: "add", Type: "i64", Operands: []string{"%" + prefix + "_idx_next_in", "1"}})
	incrBlock.store("%"+prefix+"_idx_next", idxPtr, "i64")
	incrBlock.br(cond)

	return lw.fn.addBlock(end), nil
}

// lowerPublish lowers a publish statement: bind the alias/variable pair
// and call the action bound to verb "publish" with preposition "from".
func (lw *lowerer) lowerPublish(cur *Block, stmt ast.Statement, prefix string) (*Block, *aroerr.Error) {
	cur.call("", "@variable_bind_string", "%ctx", lw.pool.Intern(varPublishAlias), lw.pool.Intern(stmt.ExternalName))
	cur.call("", "@variable_bind_string", "%ctx", lw.pool.Intern(varPublishVariable), lw.pool.Intern(stmt.InternalVariable))

	cur.alloca("%"+prefix+"_object_desc", "ObjectDescriptor")
	cur.store(fmt.Sprintf("%d", int(ast.PrepFrom)), "%"+prefix+"_object_desc.preposition", "i32")
	cur.call("%"+prefix+"_value", "@action_publish", "%ctx", "null", "%"+prefix+"_object_desc")

	cur.call("%"+prefix+"_err", "@context_has_error", "%ctx")
	okBlock := lw.fn.addBlock(prefix + "_ok")
	cur.brCond("%"+prefix+"_err", lw.errExit, okBlock.Label)
	return okBlock, nil
}

// lowerRequire lowers a require statement. Framework sources are a
// no-op: the runtime auto-binds frameworks, so no descriptor or call is
// emitted at all.
func (lw *lowerer) lowerRequire(cur *Block, stmt ast.Statement, prefix string) (*Block, *aroerr.Error) {
	if stmt.Source.Kind == ast.RequireFramework {
		return cur, nil
	}

	cur.call("", "@variable_bind_string", "%ctx", lw.pool.Intern(varRequireVariable), lw.pool.Intern(stmt.VariableName))
	sourceName := stmt.Source.FeatureSet
	if stmt.Source.Kind == ast.RequireEnvironment {
		sourceName = "environment"
	}
	cur.call("", "@variable_bind_string", "%ctx", lw.pool.Intern(varRequireSource), lw.pool.Intern(sourceName))

	cur.alloca("%"+prefix+"_object_desc", "ObjectDescriptor")
	cur.call("%"+prefix+"_value", "@action_extract", "%ctx", "null", "%"+prefix+"_object_desc")

	cur.call("%"+prefix+"_err", "@context_has_error", "%ctx")
	okBlock := lw.fn.addBlock(prefix + "_ok")
	cur.brCond("%"+prefix+"_err", lw.errExit, okBlock.Label)
	return okBlock, nil
}

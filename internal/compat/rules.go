package compat

import (
	"github.com/varro-lang/varro/internal/ir"
	"github.com/varro-lang/varro/internal/source"
)

// checkFields applies the record rules to matched field lists.
func (c *checker) checkFields(path string, oldDecl, newDecl *ir.Decl, oldFields, newFields []*ir.Field) {
	newByName := make(map[string]*ir.Field, len(newFields))
	for _, f := range newFields {
		newByName[f.Name] = f
	}
	oldByName := make(map[string]*ir.Field, len(oldFields))
	for _, f := range oldFields {
		oldByName[f.Name] = f
	}
	// Fields counted as renames of an old field are not "added".
	renamed := make(map[string]bool)

	for _, oldField := range oldFields {
		newField, ok := newByName[oldField.Name]
		if !ok {
			// Rename detection: a new field whose alias preserves the
			// old wire name keeps the encoding identical.
			if target := findRename(oldField, newFields, oldByName); target != nil {
				renamed[target.Name] = true
				c.add(Compatible, CodeFieldRenamed, oldField.Span, target.Span,
					"field %s of %s renamed to %s with alias preserving the wire name",
					oldField.Name, path, target.Name)
				c.checkFieldPair(path, oldField, target)
				continue
			}
			c.removedField(path, oldField, newDecl)
			continue
		}
		c.checkFieldPair(path, oldField, newField)
	}

	for _, newField := range newFields {
		if _, ok := oldByName[newField.Name]; ok || renamed[newField.Name] {
			continue
		}
		if newField.Optional {
			c.add(Compatible, CodeFieldAdded, source.Span{}, newField.Span,
				"optional field %s added to %s", newField.Name, path)
		} else {
			c.add(Breaking, CodeFieldAdded, source.Span{}, newField.Span,
				"required field %s added to %s; old writers cannot produce it",
				newField.Name, path)
		}
	}
}

// findRename locates a new field that is the old field renamed: its
// alias equals the old field's wire name, and it does not shadow a
// surviving old field.
func findRename(oldField *ir.Field, newFields []*ir.Field, oldByName map[string]*ir.Field) *ir.Field {
	for _, candidate := range newFields {
		if candidate.Alias != oldField.WireName() {
			continue
		}
		if _, taken := oldByName[candidate.Name]; taken {
			continue
		}
		return candidate
	}
	return nil
}

func (c *checker) removedField(path string, oldField *ir.Field, newDecl *ir.Decl) {
	if oldField.Optional {
		c.add(MinorBreaking, CodeFieldRemoved, oldField.Span, newDecl.Span,
			"optional field %s removed from %s", oldField.Name, path)
		return
	}
	// A required field that was removed and had its name reserved was
	// retired deliberately; readers were warned.
	for _, reserved := range newDecl.Attrs.Reserved {
		if reserved == oldField.Name {
			c.add(MinorBreaking, CodeFieldRemoved, oldField.Span, newDecl.Span,
				"required field %s removed from %s and reserved", oldField.Name, path)
			return
		}
	}
	c.add(Breaking, CodeFieldRemoved, oldField.Span, newDecl.Span,
		"required field %s removed from %s", oldField.Name, path)
}

func (c *checker) checkFieldPair(path string, oldField, newField *ir.Field) {
	if oldField.WireName() != newField.WireName() && oldField.Name == newField.Name {
		c.add(Breaking, CodeFieldRenamed, oldField.Span, newField.Span,
			"field %s of %s changed wire name from %q to %q",
			oldField.Name, path, oldField.WireName(), newField.WireName())
	}

	if !oldField.Type.EqualIgnoringVersion(newField.Type) {
		if isWidening(oldField.Type, newField.Type) {
			c.add(Compatible, CodeTypeChanged, oldField.Span, newField.Span,
				"field %s of %s widened from %s to %s",
				oldField.Name, path, oldField.Type, newField.Type)
		} else {
			c.add(Breaking, CodeTypeChanged, oldField.Span, newField.Span,
				"field %s of %s changed type from %s to %s",
				oldField.Name, path, oldField.Type, newField.Type)
		}
	}

	switch {
	case !oldField.Optional && newField.Optional:
		c.add(Compatible, CodeOptionalized, oldField.Span, newField.Span,
			"field %s of %s became optional", oldField.Name, path)
	case oldField.Optional && !newField.Optional:
		c.add(Breaking, CodeDeoptionalized, oldField.Span, newField.Span,
			"field %s of %s became required", oldField.Name, path)
	}
}

// isWidening implements the conservative numeric widening matrix:
// integer widening to a larger width of the same signedness. Nothing
// else is whitelisted.
func isWidening(oldRef, newRef ir.TypeRef) bool {
	if oldRef.Kind != ir.RefPrimitive || newRef.Kind != ir.RefPrimitive {
		return false
	}
	oldPrim, newPrim := oldRef.Primitive, newRef.Primitive
	if !oldPrim.IsInteger() || !newPrim.IsInteger() {
		return false
	}
	return oldPrim.IsSigned() == newPrim.IsSigned() && oldPrim.Width() < newPrim.Width()
}

// checkTuple applies the tuple rules: any change in arity or a
// position's type is breaking.
func (c *checker) checkTuple(path string, oldDecl, newDecl *ir.Decl) {
	oldFields, newFields := oldDecl.Tuple.Fields, newDecl.Tuple.Fields
	if len(oldFields) != len(newFields) {
		c.add(Breaking, CodeTupleShape, oldDecl.Span, newDecl.Span,
			"tuple %s changed arity from %d to %d", path, len(oldFields), len(newFields))
		return
	}
	for i, oldField := range oldFields {
		newField := newFields[i]
		if !oldField.Type.EqualIgnoringVersion(newField.Type) {
			c.add(Breaking, CodeTupleShape, oldField.Span, newField.Span,
				"tuple %s position %d changed type from %s to %s",
				path, i, oldField.Type, newField.Type)
		}
	}
}

// checkEnum applies the enum rules. Adding a variant is compatible
// because decoders must accept unknown variants.
func (c *checker) checkEnum(path string, oldDecl, newDecl *ir.Decl) {
	oldEnum, newEnum := oldDecl.Enum, newDecl.Enum

	if oldEnum.Primitive != newEnum.Primitive {
		c.add(Breaking, CodeEnumPrimitive, oldDecl.Span, newDecl.Span,
			"enum %s changed representation from %s to %s",
			path, oldEnum.Primitive, newEnum.Primitive)
		return
	}

	newByName := make(map[string]*ir.Variant, len(newEnum.Variants))
	for _, v := range newEnum.Variants {
		newByName[v.Name] = v
	}
	oldByName := make(map[string]*ir.Variant, len(oldEnum.Variants))
	for _, v := range oldEnum.Variants {
		oldByName[v.Name] = v
	}

	for _, oldVariant := range oldEnum.Variants {
		newVariant, ok := newByName[oldVariant.Name]
		if !ok {
			c.add(Breaking, CodeVariantRemoved, oldVariant.Span, newDecl.Span,
				"variant %s removed from enum %s", oldVariant.Name, path)
			continue
		}
		oldLit := oldVariant.LiteralString(oldEnum.Primitive)
		newLit := newVariant.LiteralString(newEnum.Primitive)
		if oldLit != newLit {
			c.add(Breaking, CodeLiteralChanged, oldVariant.Span, newVariant.Span,
				"variant %s of enum %s changed representation from %s to %s",
				oldVariant.Name, path, oldLit, newLit)
		}
	}
	for _, newVariant := range newEnum.Variants {
		if _, ok := oldByName[newVariant.Name]; !ok {
			c.add(Compatible, CodeVariantAdded, source.Span{}, newVariant.Span,
				"variant %s added to enum %s", newVariant.Name, path)
		}
	}
}

// checkInterface applies the interface rules.
func (c *checker) checkInterface(path string, oldDecl, newDecl *ir.Decl) {
	oldIface, newIface := oldDecl.Interface, newDecl.Interface

	if oldIface.Strategy != newIface.Strategy {
		c.add(Breaking, CodeStrategy, oldDecl.Span, newDecl.Span,
			"interface %s changed strategy from %s to %s",
			path, oldIface.Strategy, newIface.Strategy)
		return
	}
	if oldIface.Strategy == ir.Tagged && oldIface.TagField != newIface.TagField {
		c.add(Breaking, CodeTagChanged, oldDecl.Span, newDecl.Span,
			"interface %s changed discriminator field from %q to %q",
			path, oldIface.TagField, newIface.TagField)
	}

	c.checkFields(path, oldDecl, newDecl, oldIface.SharedFields, newIface.SharedFields)

	newByWire := make(map[string]*ir.SubType, len(newIface.SubTypes))
	for _, sub := range newIface.SubTypes {
		newByWire[sub.WireName] = sub
	}
	oldByWire := make(map[string]*ir.SubType, len(oldIface.SubTypes))
	for _, sub := range oldIface.SubTypes {
		oldByWire[sub.WireName] = sub
	}

	for _, oldSub := range oldIface.SubTypes {
		newSub, ok := newByWire[oldSub.WireName]
		if !ok {
			c.add(Breaking, CodeSubTypeRemoved, oldSub.Span, newDecl.Span,
				"sub-type %q removed from interface %s", oldSub.WireName, path)
			continue
		}
		c.checkFields(path+"."+oldSub.Name, oldDecl, newDecl, oldSub.Fields, newSub.Fields)
	}
	for _, newSub := range newIface.SubTypes {
		if _, ok := oldByWire[newSub.WireName]; ok {
			continue
		}
		// Order-based matching shifts for untagged interfaces, so the
		// addition is not fully compatible there.
		level := Compatible
		if oldIface.Strategy == ir.Untagged {
			level = MinorBreaking
			if c.opts.StrictUntagged {
				level = Breaking
			}
		}
		c.add(level, CodeSubTypeAdded, source.Span{}, newSub.Span,
			"sub-type %q added to %s interface %s", newSub.WireName, oldIface.Strategy, path)
	}
}

// checkService applies the service rules. A changed request or
// response type reference recurses into record compatibility of the
// referenced declarations.
func (c *checker) checkService(path string, oldDecl, newDecl *ir.Decl) {
	oldSvc, newSvc := oldDecl.Service, newDecl.Service

	newByName := make(map[string]*ir.Endpoint, len(newSvc.Endpoints))
	for _, ep := range newSvc.Endpoints {
		newByName[ep.Name] = ep
	}
	oldByName := make(map[string]*ir.Endpoint, len(oldSvc.Endpoints))
	for _, ep := range oldSvc.Endpoints {
		oldByName[ep.Name] = ep
	}

	for _, oldEp := range oldSvc.Endpoints {
		newEp, ok := newByName[oldEp.Name]
		if !ok {
			c.add(Breaking, CodeEndpointGone, oldEp.Span, newDecl.Span,
				"endpoint %s removed from service %s", oldEp.Name, path)
			continue
		}
		c.checkEndpoint(path, oldEp, newEp)
	}
	for _, newEp := range newSvc.Endpoints {
		if _, ok := oldByName[newEp.Name]; !ok {
			c.add(Compatible, CodeEndpointAdded, source.Span{}, newEp.Span,
				"endpoint %s added to service %s", newEp.Name, path)
		}
	}
}

func (c *checker) checkEndpoint(path string, oldEp, newEp *ir.Endpoint) {
	label := path + "." + oldEp.Name

	if len(oldEp.Args) != len(newEp.Args) {
		c.add(Breaking, CodeEndpointType, oldEp.Span, newEp.Span,
			"endpoint %s changed argument count from %d to %d",
			label, len(oldEp.Args), len(newEp.Args))
	} else {
		for i, oldArg := range oldEp.Args {
			newArg := newEp.Args[i]
			if oldArg.Stream != newArg.Stream {
				c.add(Breaking, CodeStreaming, oldEp.Span, newEp.Span,
					"endpoint %s argument %s changed streaming direction", label, oldArg.Name)
			}
			c.checkTypeRef(label+"("+oldArg.Name+")", oldArg.Type, newArg.Type, oldEp.Span, newEp.Span)
		}
	}

	switch {
	case oldEp.Result == nil && newEp.Result == nil:
	case oldEp.Result == nil || newEp.Result == nil:
		c.add(Breaking, CodeEndpointType, oldEp.Span, newEp.Span,
			"endpoint %s response presence changed", label)
	default:
		if oldEp.Result.Stream != newEp.Result.Stream {
			c.add(Breaking, CodeStreaming, oldEp.Span, newEp.Span,
				"endpoint %s response changed streaming direction", label)
		}
		c.checkTypeRef(label, oldEp.Result.Type, newEp.Result.Type, oldEp.Span, newEp.Span)
	}
}

// checkTypeRef compares an endpoint type reference. References to
// declarations of the checked package recurse into declaration
// compatibility; anything else must match structurally.
func (c *checker) checkTypeRef(label string, oldRef, newRef ir.TypeRef, oldSpan, newSpan source.Span) {
	if oldRef.EqualIgnoringVersion(newRef) {
		return
	}
	if oldRef.Kind == ir.RefNamed && newRef.Kind == ir.RefNamed {
		oldTarget, oldOK := c.old.Lookup(*oldRef.Named)
		newTarget, newOK := c.new.Lookup(*newRef.Named)
		if oldOK && newOK {
			c.add(MinorBreaking, CodeEndpointType, oldSpan, newSpan,
				"%s changed type reference from %s to %s; comparing targets",
				label, oldRef, newRef)
			c.checkDecl(label, oldTarget, newTarget)
			return
		}
	}
	c.add(Breaking, CodeEndpointType, oldSpan, newSpan,
		"%s changed type from %s to %s", label, oldRef, newRef)
}

package onestore

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for store-boundary events.
var (
	SignalRecipeRegistered = capitan.NewSignal("onestore.recipe.registered", "Recipe registered")
	SignalStoreStart       = capitan.NewSignal("onestore.store.start", "Object store operation beginning")
	SignalStoreComplete    = capitan.NewSignal("onestore.store.complete", "Object store operation finished")
	SignalLoadStart        = capitan.NewSignal("onestore.load.start", "Object load operation beginning")
	SignalLoadComplete     = capitan.NewSignal("onestore.load.complete", "Object load operation finished")
	SignalVersionAppended  = capitan.NewSignal("onestore.version.appended", "Version node appended")
	SignalReverseMapAppend = capitan.NewSignal("onestore.rmap.appended", "Reverse-map entry appended")
	SignalImplodeStart     = capitan.NewSignal("onestore.implode.start", "Implode operation beginning")
	SignalImplodeComplete  = capitan.NewSignal("onestore.implode.complete", "Implode operation finished")
	SignalExplodeStart     = capitan.NewSignal("onestore.explode.start", "Explode operation beginning")
	SignalExplodeComplete  = capitan.NewSignal("onestore.explode.complete", "Explode operation finished")
)

// Keys for typed event data.
var (
	KeyTypeName    = capitan.NewStringKey("type_name")
	KeyHash        = capitan.NewStringKey("hash")
	KeyIDHash      = capitan.NewStringKey("id_hash")
	KeyStatus      = capitan.NewStringKey("status")
	KeySize        = capitan.NewIntKey("size")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyError       = capitan.NewErrorKey("error")
	KeyRuleCount   = capitan.NewIntKey("rule_count")
	KeyRefCount    = capitan.NewIntKey("ref_count")
	KeyReferencing = capitan.NewStringKey("referencing_type")
)

func emitRecipeRegistered(typeName string, ruleCount int) {
	capitan.Emit(context.Background(), SignalRecipeRegistered,
		KeyTypeName.Field(typeName),
		KeyRuleCount.Field(ruleCount),
	)
}

func emitStoreStart(typeName string) {
	capitan.Emit(context.Background(), SignalStoreStart, KeyTypeName.Field(typeName))
}

func emitStoreComplete(typeName, hash, status string, size int, duration time.Duration, err error) {
	ctx := context.Background()
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyHash.Field(hash),
		KeyStatus.Field(status),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalStoreComplete, fields...)
		return
	}
	capitan.Emit(ctx, SignalStoreComplete, fields...)
}

func emitLoadStart(hash string) {
	capitan.Emit(context.Background(), SignalLoadStart, KeyHash.Field(hash))
}

func emitLoadComplete(hash string, duration time.Duration, err error) {
	ctx := context.Background()
	fields := []capitan.Field{KeyHash.Field(hash), KeyDuration.Field(duration)}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalLoadComplete, fields...)
		return
	}
	capitan.Emit(ctx, SignalLoadComplete, fields...)
}

func emitVersionAppended(idHash, hash string) {
	capitan.Emit(context.Background(), SignalVersionAppended,
		KeyIDHash.Field(idHash),
		KeyHash.Field(hash),
	)
}

func emitReverseMapAppended(target, referencingType string) {
	capitan.Emit(context.Background(), SignalReverseMapAppend,
		KeyHash.Field(target),
		KeyReferencing.Field(referencingType),
	)
}

func emitImplodeStart(rootHash string) {
	capitan.Emit(context.Background(), SignalImplodeStart, KeyHash.Field(rootHash))
}

func emitImplodeComplete(rootHash string, refCount int, duration time.Duration, err error) {
	ctx := context.Background()
	fields := []capitan.Field{
		KeyHash.Field(rootHash),
		KeyRefCount.Field(refCount),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalImplodeComplete, fields...)
		return
	}
	capitan.Emit(ctx, SignalImplodeComplete, fields...)
}

func emitExplodeStart() {
	capitan.Emit(context.Background(), SignalExplodeStart)
}

func emitExplodeComplete(hash string, duration time.Duration, err error) {
	ctx := context.Background()
	fields := []capitan.Field{KeyHash.Field(hash), KeyDuration.Field(duration)}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalExplodeComplete, fields...)
		return
	}
	capitan.Emit(ctx, SignalExplodeComplete, fields...)
}

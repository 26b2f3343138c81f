package pipeline

import (
	"github.com/KilimcininKorOglu/sedir/internal/event"
)

// eventInterceptor publishes committed changes to the change feed
// broker after the rest of the chain has succeeded. Failures publish
// nothing.
type eventInterceptor struct {
	Base
	deps *Deps
}

func newEventInterceptor(deps *Deps) *eventInterceptor {
	return &eventInterceptor{deps: deps}
}

func (in *eventInterceptor) Name() string { return "event" }

func (in *eventInterceptor) publish(ev event.ChangeEvent) {
	if in.deps.Broker != nil {
		in.deps.Broker.Publish(ev)
	}
}

func (in *eventInterceptor) Add(next Chain, ctx *AddContext) error {
	if err := next.Add(ctx); err != nil {
		return err
	}
	in.publish(event.ChangeEvent{
		Operation: event.OpAdd,
		Dn:        ctx.Entry.Dn,
		Entry:     ctx.Entry.Clone(),
	})
	return nil
}

func (in *eventInterceptor) Delete(next Chain, ctx *DeleteContext) error {
	if err := next.Delete(ctx); err != nil {
		return err
	}
	in.publish(event.ChangeEvent{
		Operation: event.OpDelete,
		Dn:        ctx.Dn,
	})
	return nil
}

func (in *eventInterceptor) Modify(next Chain, ctx *ModifyContext) error {
	if err := next.Modify(ctx); err != nil {
		return err
	}
	ev := event.ChangeEvent{
		Operation: event.OpModify,
		Dn:        ctx.Dn,
	}
	if ctx.Prepared != nil {
		ev.Entry = ctx.Prepared.Clone()
	}
	in.publish(ev)
	return nil
}

func (in *eventInterceptor) Rename(next Chain, ctx *RenameContext) error {
	if err := next.Rename(ctx); err != nil {
		return err
	}
	ev := event.ChangeEvent{
		Operation: event.OpModifyDN,
		Dn:        ctx.NewDn,
		OldDn:     ctx.Dn,
	}
	if ctx.Prepared != nil {
		ev.Entry = ctx.Prepared.Clone()
	}
	in.publish(ev)
	return nil
}

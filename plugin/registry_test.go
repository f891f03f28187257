package plugin

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/plan"
)

type countingPlugin struct {
	name      string
	completed atomic.Int32
	failed    atomic.Int32
	fail      bool
}

func (p *countingPlugin) Name() string { return p.name }

func (p *countingPlugin) OnPaymentCompleted(context.Context, *payment.Payment) error {
	p.completed.Add(1)
	if p.fail {
		return errors.New("boom")
	}
	return nil
}

func (p *countingPlugin) OnPaymentFailed(context.Context, *payment.Payment, string) error {
	p.failed.Add(1)
	panic("unexpected")
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }
func (slowPlugin) OnPaymentCompleted(ctx context.Context, _ *payment.Payment) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

type rejectAll struct{}

func (rejectAll) Name() string { return "reject-all" }
func (rejectAll) ValidateCoupon(context.Context, *coupon.Coupon, string, *plan.Plan) error {
	return errors.New("first purchase only")
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&countingPlugin{name: "a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&countingPlugin{name: "a"}); err == nil {
		t.Fatal("expected duplicate error")
	}
	if r.Count() != 1 {
		t.Errorf("Count: got %d", r.Count())
	}
	if r.Get("a") == nil || r.Get("b") != nil {
		t.Error("Get returned wrong plugin")
	}
}

func TestEmitDispatchesAndSwallowsErrors(t *testing.T) {
	r := NewRegistry()
	ok := &countingPlugin{name: "ok"}
	bad := &countingPlugin{name: "bad", fail: true}
	_ = r.Register(ok)
	_ = r.Register(bad)

	r.EmitPaymentCompleted(context.Background(), &payment.Payment{})

	if ok.completed.Load() != 1 || bad.completed.Load() != 1 {
		t.Errorf("expected both plugins called, got %d and %d", ok.completed.Load(), bad.completed.Load())
	}
}

func TestEmitRecoversPanics(t *testing.T) {
	r := NewRegistry()
	p := &countingPlugin{name: "panics"}
	_ = r.Register(p)

	r.EmitPaymentFailed(context.Background(), &payment.Payment{}, "declined")

	if p.failed.Load() != 1 {
		t.Errorf("expected OnPaymentFailed called once, got %d", p.failed.Load())
	}
}

func TestEmitTimeout(t *testing.T) {
	r := NewRegistry().WithTimeout(20 * time.Millisecond)
	_ = r.Register(slowPlugin{})

	start := time.Now()
	r.EmitPaymentCompleted(context.Background(), &payment.Payment{})
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("emit should not wait for slow plugin, took %v", elapsed)
	}
}

func TestValidateCoupon(t *testing.T) {
	r := NewRegistry()
	if err := r.ValidateCoupon(context.Background(), &coupon.Coupon{}, "u1", &plan.Plan{}); err != nil {
		t.Fatalf("no validators should accept, got %v", err)
	}

	_ = r.Register(rejectAll{})
	if err := r.ValidateCoupon(context.Background(), &coupon.Coupon{}, "u1", &plan.Plan{}); err == nil {
		t.Fatal("expected rejection")
	}
}

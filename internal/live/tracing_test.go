package live

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestEveryTransitionIsTraced(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = provider.Shutdown(context.Background())
	})

	f := newFixture(t)
	ctx := context.Background()
	seller := f.seller(t, "Ada")
	product := f.product(t, seller.ID, 10, true)

	if _, err := f.svc.GoLive(ctx, GoLiveRequest{SellerID: seller.ID, LiveType: "Normal"}); err != nil {
		t.Fatalf("GoLive: %v", err)
	}
	if _, err := f.svc.UpdateSelection(ctx, seller.ID, []string{product.ID}); err != nil {
		t.Fatalf("UpdateSelection: %v", err)
	}
	if _, err := f.svc.RecordAuctionResult(ctx, AuctionResultRequest{SellerID: seller.ID, ProductID: product.ID, Status: "sold"}); err == nil {
		t.Fatal("expected invalid status error")
	}
	if _, err := f.svc.GoOffline(ctx, seller.ID); err != nil {
		t.Fatalf("GoOffline: %v", err)
	}
	if _, err := f.svc.EndSession(ctx, EndSessionRequest{SellerID: seller.ID}); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	got := make(map[string]codes.Code)
	for _, span := range recorder.Ended() {
		got[span.Name()] = span.Status().Code
	}

	want := map[string]codes.Code{
		"live.GoLive":              codes.Unset,
		"live.UpdateSelection":     codes.Unset,
		"live.RecordAuctionResult": codes.Error,
		"live.GoOffline":           codes.Unset,
		"live.EndSession":          codes.Unset,
	}
	for name, code := range want {
		status, ok := got[name]
		if !ok {
			t.Errorf("missing span %q (recorded %v)", name, got)
			continue
		}
		if status != code {
			t.Errorf("span %q status = %v, want %v", name, status, code)
		}
	}
}

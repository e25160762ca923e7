package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"hamropasal.com/app/internal/shared/currency"
)

// Manager is the single entry point hiding adapter heterogeneity. It is
// stateless: correlation between initiation and verification travels with the
// caller as transaction id / pidx / oid. Adapters may return errors; the
// manager converts every failure into a result object, so callers never see a
// raw gateway error.
type Manager struct {
	esewa  *Esewa
	khalti *Khalti
	logger *slog.Logger
}

func NewManager(esewa *Esewa, khalti *Khalti, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{esewa: esewa, khalti: khalti, logger: logger}
}

func (m *Manager) Initiate(ctx context.Context, cfg InitiateConfig) InitiationResult {
	switch cfg.Method {
	case MethodCOD:
		// No external service is involved: synthesize a transaction id and
		// let the caller proceed straight to order confirmation.
		return InitiationResult{
			Method:        MethodCOD,
			Success:       true,
			TransactionID: fmt.Sprintf("cod-%s-%d", cfg.OrderID, time.Now().Unix()),
		}

	case MethodEsewa:
		if m.esewa == nil {
			return failedInitiation(cfg.Method, "esewa gateway not configured")
		}
		req := m.esewa.CreatePaymentRequest(EsewaPaymentInput{
			ProductID:   cfg.ProductID,
			OrderID:     cfg.OrderID,
			AmountPaisa: cfg.AmountPaisa,
		})
		return InitiationResult{
			Method:        MethodEsewa,
			Success:       true,
			PaymentURL:    m.esewa.PaymentURL(req),
			TransactionID: req.PID,
			Data: map[string]string{
				"pid":  req.PID,
				"tAmt": req.TAmt,
			},
		}

	case MethodKhalti:
		if m.khalti == nil {
			return failedInitiation(cfg.Method, "khalti gateway not configured")
		}
		res, err := m.khalti.Initiate(ctx, KhaltiInitiateInput{
			OrderID:     cfg.OrderID,
			ProductName: cfg.ProductName,
			AmountPaisa: cfg.AmountPaisa,
			Customer:    cfg.Customer,
		})
		if err != nil {
			m.logger.ErrorContext(ctx, "khalti initiation failed", "order_id", cfg.OrderID, "err", err)
			return failedInitiation(cfg.Method, "payment initiation failed, please try again")
		}
		return InitiationResult{
			Method:        MethodKhalti,
			Success:       true,
			PaymentURL:    res.PaymentURL,
			TransactionID: res.Pidx,
			Data: map[string]string{
				"pidx":       res.Pidx,
				"expires_at": res.ExpiresAt,
				"expires_in": strconv.Itoa(res.ExpiresIn),
			},
		}

	default:
		return failedInitiation(cfg.Method, fmt.Sprintf("unknown payment method: %q", cfg.Method))
	}
}

// Verify dispatches verification. eSewa callbacks carry oid/amt/refId as
// separate values, Khalti a single pidx, so gateway-specific inputs arrive in
// extra.
func (m *Manager) Verify(ctx context.Context, method Method, transactionID string, extra map[string]string) VerificationResult {
	switch method {
	case MethodCOD:
		// Nothing to verify online; exists to keep the interface uniform for
		// the fulfillment path.
		return VerificationResult{
			Method:        MethodCOD,
			Success:       true,
			TransactionID: transactionID,
			OrderID:       extra["order_id"],
		}

	case MethodEsewa:
		if m.esewa == nil {
			return failedVerification(method, transactionID, "esewa gateway not configured")
		}
		oid := extra["oid"]
		if oid == "" {
			oid = transactionID
		}
		amt := extra["amt"]
		refID := extra["refId"]
		if oid == "" || amt == "" || refID == "" {
			return failedVerification(method, transactionID, "esewa verification requires oid, amt and refId")
		}

		ok := m.esewa.VerifyPayment(ctx, oid, amt, refID)
		res := VerificationResult{
			Method:        MethodEsewa,
			Success:       ok,
			TransactionID: oid,
			OrderID:       extra["order_id"],
			Data:          map[string]string{"ref_id": refID},
		}
		if npr, err := strconv.ParseFloat(amt, 64); err == nil {
			res.AmountPaisa = currency.NprToPaisa(npr)
		}
		if !ok {
			res.Error = "payment not verified"
		}
		return res

	case MethodKhalti:
		if m.khalti == nil {
			return failedVerification(method, transactionID, "khalti gateway not configured")
		}
		pidx := transactionID
		if pidx == "" {
			pidx = extra["pidx"]
		}
		look, err := m.khalti.Lookup(ctx, pidx)
		if err != nil {
			m.logger.ErrorContext(ctx, "khalti lookup failed", "pidx", pidx, "err", err)
			return failedVerification(method, pidx, "payment verification failed")
		}
		res := VerificationResult{
			Method:        MethodKhalti,
			Success:       IsPaymentSuccessful(look.Status),
			TransactionID: pidx,
			AmountPaisa:   look.TotalAmountPaisa,
			OrderID:       extra["order_id"],
			Data: map[string]string{
				"status":      look.Status,
				"status_text": PaymentStatusText(look.Status),
			},
		}
		if !res.Success {
			res.Error = PaymentStatusText(look.Status)
		}
		return res

	default:
		return failedVerification(method, transactionID, fmt.Sprintf("unknown payment method: %q", method))
	}
}

func failedInitiation(method Method, msg string) InitiationResult {
	return InitiationResult{Method: method, Success: false, Error: msg}
}

func failedVerification(method Method, txnID, msg string) VerificationResult {
	return VerificationResult{Method: method, Success: false, TransactionID: txnID, Error: msg}
}

// Display metadata: pure lookup tables so the storefront never branches on
// method-specific strings.

func MethodDisplayName(m Method) string {
	switch m {
	case MethodEsewa:
		return "eSewa"
	case MethodKhalti:
		return "Khalti"
	case MethodCOD:
		return "Cash on Delivery"
	default:
		return string(m)
	}
}

func MethodIcon(m Method) string {
	switch m {
	case MethodEsewa:
		return "/icons/esewa.svg"
	case MethodKhalti:
		return "/icons/khalti.svg"
	case MethodCOD:
		return "/icons/cod.svg"
	default:
		return ""
	}
}

func IsOnlineMethod(m Method) bool {
	return m == MethodEsewa || m == MethodKhalti
}

package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ComputeSignature возвращает hex подпись HMAC-SHA256 полезной нагрузки.
func ComputeSignature(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature пересчитывает ожидаемую подпись от сырого payload и сравнивает
// с присланной за константное время. Любое несовпадение означает непроверяемое
// событие: оно отклоняется без побочных эффектов.
func VerifySignature(payload []byte, signature string, secret []byte) bool {
	expected := ComputeSignature(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyCheckoutSignature проверяет подпись клиентского подтверждения оплаты:
// подписывается строка "<provider_order_id>|<provider_payment_id>".
func VerifyCheckoutSignature(providerOrderID, providerPaymentID, signature string, secret []byte) bool {
	payload := providerOrderID + "|" + providerPaymentID
	return VerifySignature([]byte(payload), signature, secret)
}

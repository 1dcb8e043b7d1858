package protocol

// InsertDeliverMax adds the DeliverMax alias to a rendered Payment. From
// API version 2 on, Amount is removed in favor of DeliverMax.
func InsertDeliverMax(txJSON map[string]any, t TxType, apiVersion uint) {
	amount, ok := txJSON[FieldAmount.Name]
	if !ok || t != TtPayment {
		return
	}
	txJSON["DeliverMax"] = amount
	if apiVersion > 1 {
		delete(txJSON, FieldAmount.Name)
	}
}

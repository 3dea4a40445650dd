package llm

// EstimateTokens aproxima el costo de un texto: 1 token ≈ 4 caracteres.
// Es una heurística barata, no un conteo exacto.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// TruncateToBudget devuelve el sufijo más reciente del historial cuyo costo
// estimado cabe en el presupuesto. Se descartan primero los turnos más viejos
// y nunca se altera el orden.
func TruncateToBudget(history []Message, maxTokens int) []Message {
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := EstimateTokens(history[i].Content)
		if total+cost > maxTokens {
			break
		}
		total += cost
		start = i
	}
	return history[start:]
}

package dispatcher

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer renders every Result.Message in Brazilian Portuguese (spec.md
// §7: "a short, localized (Portuguese) human string suitable for relay to
// the end user"). golang.org/x/text/message gives locale-aware numeral
// formatting for the counts embedded in these messages (attempts left,
// processed counts) rather than plain fmt.Sprintf.
var printer = message.NewPrinter(language.BrazilianPortuguese)

const (
	msgSystemError = "Ocorreu um erro interno. Tente novamente mais tarde."
)

func msgVerificationStarted() string {
	return "Verificação iniciada. Envie seu CPF para continuar."
}

func msgVerificationAlreadyPending() string {
	return "Você já possui uma verificação em andamento."
}

func msgRateLimited() string {
	return "Você atingiu o limite de tentativas. Tente novamente mais tarde."
}

func msgInvalidCPFFormat(attemptsLeft int) string {
	return printer.Sprintf("CPF inválido. Restam %d tentativa(s).", attemptsLeft)
}

func msgCPFDuplicate() string {
	return "Este CPF já está associado a outro usuário. Encaminhado para análise."
}

func msgCPFNotFound() string {
	return "CPF não encontrado ou sem serviço ativo."
}

func msgVerificationCompleted() string {
	return "Verificação concluída com sucesso."
}

func msgNoPendingVerification() string {
	return "Nenhuma verificação pendente encontrada."
}

func msgCannotAttempt() string {
	return "Não é possível enviar um novo CPF para esta verificação."
}

func msgVerificationCancelled() string {
	return "Verificação cancelada."
}

func msgCannotCancelTerminal() string {
	return "Esta verificação já foi encerrada e não pode ser cancelada."
}

func msgExpireSweepProcessed(count int) string {
	return printer.Sprintf("%d verificação(ões) expirada(s) processada(s).", count)
}

func msgDuplicateResolved() string {
	return "Conflito de CPF resolvido."
}

func msgConversationStarted() string {
	return "Vamos abrir um chamado de suporte. Selecione a categoria."
}

func msgConversationAlreadyActive() string {
	return "Você já possui um atendimento em andamento."
}

func msgStepAdvanced() string {
	return "Etapa registrada."
}

func msgConversationStepMismatch() string {
	return "Esta etapa não está disponível no momento."
}

func msgDescriptionTooShort() string {
	return "A descrição precisa ter pelo menos 10 caracteres."
}

func msgTicketCreated(protocol string) string {
	return printer.Sprintf("Chamado criado com sucesso. Protocolo: %s.", protocol)
}

func msgConversationCancelled() string {
	return "Atendimento cancelado."
}

func msgTimeoutSweepProcessed(count int) string {
	return printer.Sprintf("%d atendimento(s) encerrado(s) por inatividade.", count)
}

func msgTicketUpdated() string {
	return "Chamado atualizado."
}

func msgInvalidTransition() string {
	return "Transição de status inválida para este chamado."
}

func msgIntegrationScheduled(id string) string {
	return printer.Sprintf("Integração agendada (id %s).", id)
}

func msgIntegrationNotFound() string {
	return "Solicitação de integração não encontrada."
}

func msgIntegrationCancelled() string {
	return "Solicitação de integração cancelada."
}

func msgRetryScheduled(count int) string {
	return printer.Sprintf("%d integração(ões) reagendada(s) para nova tentativa.", count)
}

func msgUserNotFound() string {
	return "Usuário não encontrado."
}

func msgUserAlreadyBanned() string {
	return "Usuário já está banido."
}

func msgCannotBanSelf() string {
	return "Não é possível banir a si mesmo."
}

func msgUserBanned() string {
	return "Usuário banido."
}

func msgUserUnbanned() string {
	return "Usuário reativado."
}

func msgInvalidPriority() string {
	return "Prioridade inválida."
}

func msgInvalidSyncType() string {
	return "Tipo de integração inválido."
}

func msgMissingHubsoftID() string {
	return "Este chamado ainda não possui identificador no HubSoft."
}

func msgEmptyTicketList() string {
	return "A lista de chamados não pode ser vazia."
}

func msgBulkLimitExceeded() string {
	return printer.Sprintf("O lote excede o limite de %d chamados.", BulkSyncLimit)
}

func msgScheduleError() string {
	return "Não foi possível agendar a integração."
}

func msgCancelError() string {
	return "Esta integração já foi concluída ou cancelada e não pode ser cancelada novamente."
}

func msgRetryError() string {
	return "Não foi possível reagendar a integração."
}

func msgUpstreamUnavailable() string {
	return "O HubSoft está indisponível no momento. Tente novamente em instantes."
}

func msgUpstreamRateLimited() string {
	return "Limite de requisições ao HubSoft atingido. Tente novamente em instantes."
}

func msgUpstreamNotFound() string {
	return "Registro não encontrado no HubSoft."
}

func msgUpstreamConflict() string {
	return "O HubSoft recusou a operação por conflito de estado."
}

package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"vinyl-store/internal/breaker"
	"vinyl-store/internal/config"
	"vinyl-store/internal/domain"
	"vinyl-store/internal/logger"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type emailTemplate struct {
	subject string
	body    *template.Template
}

var emailTemplates = map[domain.NotificationKind]emailTemplate{
	domain.NotifyOrderCreated: {
		subject: "Nuevo pedido recibido",
		body: template.Must(template.New("order_created").Parse(`
			<h1>Nuevo pedido</h1>
			<p>{{.customer_name}} realizó el pedido <strong>{{.order_id}}</strong>.</p>
			<p>Total: ${{.total}}</p>
			<p>Revisa el comprobante de pago en el panel de administración.</p>
		`)),
	},
	domain.NotifyOrderShippedCourier: {
		subject: "Tu pedido fue enviado",
		body: template.Must(template.New("order_shipped_courier").Parse(`
			<h1>Hola {{.customer_name}}</h1>
			<p>Tu pedido <strong>{{.order_id}}</strong> ya fue entregado al courier y está en camino.</p>
			<p>Puedes ver la guía de envío desde la aplicación.</p>
		`)),
	},
	domain.NotifyOrderShippedMeetup: {
		subject: "Tu pedido está listo para la entrega",
		body: template.Must(template.New("order_shipped_meetup").Parse(`
			<h1>Hola {{.customer_name}}</h1>
			<p>Tu pedido <strong>{{.order_id}}</strong> está listo.</p>
			<p>Te esperamos en el punto de encuentro acordado. Recuerda llevar el pago en efectivo.</p>
		`)),
	},
}

// RenderEmail returns the subject and HTML body for an email notification
func RenderEmail(n *domain.Notification) (string, string, error) {
	tmpl, ok := emailTemplates[n.Kind]
	if !ok {
		return "", "", fmt.Errorf("no email template for kind %q", n.Kind)
	}

	var buf bytes.Buffer
	if err := tmpl.body.Execute(&buf, n.Data); err != nil {
		return "", "", fmt.Errorf("failed to render %s email: %w", n.Kind, err)
	}
	return tmpl.subject, buf.String(), nil
}

type Sender interface {
	Send(ctx context.Context, n *domain.Notification) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpSender struct {
	cfg      config.SMTPConfig
	sendMail sendMailFunc
	cb       *gobreaker.CircuitBreaker
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewSMTPSender(cfg config.SMTPConfig, log *zap.Logger) Sender {
	return newSMTPSender(cfg, smtp.SendMail, log)
}

func newSMTPSender(cfg config.SMTPConfig, sendMail sendMailFunc, log *zap.Logger) *smtpSender {
	return &smtpSender{
		cfg:      cfg,
		sendMail: sendMail,
		cb:       breaker.New("smtp", log),
		logger:   log,
		tracer:   otel.Tracer("notification/email"),
	}
}

func (s *smtpSender) Send(ctx context.Context, n *domain.Notification) error {
	ctx, span := s.tracer.Start(ctx, "smtp.Send")
	defer span.End()

	span.SetAttributes(
		attribute.String("kind", string(n.Kind)),
		attribute.String("to.email", n.Recipient),
	)

	subject, body, err := RenderEmail(n)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if !s.cfg.Enabled() {
		logger.Warn(ctx, s.logger, "SMTP not configured, skipping email",
			zap.String("kind", string(n.Kind)),
			zap.String("to", n.Recipient),
		)
		return nil
	}

	header := fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\n", s.cfg.From, n.Recipient, subject)
	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(header + mime + body)
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)

	logger.Info(ctx, s.logger, "Sending email",
		zap.String("kind", string(n.Kind)),
		zap.String("to", n.Recipient),
	)

	_, err = breaker.Execute(s.cb, func() (struct{}, error) {
		return struct{}{}, s.sendMail(addr, auth, s.cfg.From, []string{n.Recipient}, msg)
	})
	if err != nil {
		span.RecordError(err)
		logger.Error(ctx, s.logger, "Error sending email",
			zap.String("kind", string(n.Kind)),
			zap.String("to", n.Recipient),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send mail: %w", err)
	}

	logger.Info(ctx, s.logger, "Email sent successfully", zap.String("kind", string(n.Kind)))
	return nil
}

package server

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/poyrazK/cloudDNS/internal/dns/packet"
	"github.com/poyrazK/cloudDNS/internal/metrics"
)

// handleQuery parses one request message, resolves its first question,
// and returns the serialized response. protocol is "udp" or "tcp" and
// only affects which wire shape the request is parsed and the response
// written in, and which log and metrics label it's recorded under.
func handleQuery(ctx context.Context, sc *Context, requestData []byte, protocol string) ([]byte, error) {
	start := time.Now()
	correlationID := uuid.NewString()
	log := sc.log().With("correlation_id", correlationID, "protocol", protocol)

	var (
		request *packet.Packet
		err     error
	)
	if protocol == "tcp" {
		request, err = packet.ParseTCP(requestData)
	} else {
		request, err = packet.ParseUDP(requestData)
	}
	if err != nil {
		log.Warn("failed to parse request", "error", err)
		return nil, err
	}

	response := buildResponse(ctx, sc, request, log)

	var data []byte
	if protocol == "tcp" {
		data, err = response.WriteTCP()
	} else {
		data, err = response.WriteUDP()
	}
	if err != nil {
		log.Warn("failed to serialize response", "error", err)
		return nil, err
	}

	qtype := "none"
	if len(response.Questions) > 0 {
		qtype = response.Questions[0].Type.String()
	}
	metrics.QueriesTotal.WithLabelValues(qtype, rcodeLabel(response.Header.Rcode), protocol).Inc()
	metrics.QueryDuration.WithLabelValues(protocol).Observe(time.Since(start).Seconds())

	return data, nil
}

func buildResponse(ctx context.Context, sc *Context, request *packet.Packet, log interface {
	Info(string, ...any)
	Warn(string, ...any)
}) *packet.Packet {
	response := packet.NewPacket()
	response.Header.ID = request.Header.ID
	response.Header.Response = true
	response.Header.RecursionDesired = request.Header.RecursionDesired
	response.Header.RecursionAvailable = sc.AllowRecursion

	if len(request.Questions) == 0 {
		response.Header.Rcode = packet.RcodeFormErr
		return response
	}

	question := request.Questions[0]
	response.Questions = []packet.Question{question}
	log.Info("received query", "qname", question.Name, "qtype", question.Type.String())

	resolved, err := sc.NewResolver().Resolve(ctx, question.Name, question.Type)
	if err != nil {
		log.Warn("resolve failed", "qname", question.Name, "qtype", question.Type.String(), "error", err)
		response.Header.Rcode = packet.RcodeServFail
		return response
	}

	response.Header.Rcode = resolved.Header.Rcode
	response.Answers = resolved.Answers
	response.Authorities = resolved.Authorities
	response.Additional = resolved.Additional
	return response
}

func rcodeLabel(r packet.Rcode) string {
	switch r {
	case packet.RcodeNoError:
		return "noerror"
	case packet.RcodeFormErr:
		return "formerr"
	case packet.RcodeServFail:
		return "servfail"
	case packet.RcodeNXDomain:
		return "nxdomain"
	case packet.RcodeNotImp:
		return "notimp"
	case packet.RcodeRefused:
		return "refused"
	default:
		return "unknown"
	}
}

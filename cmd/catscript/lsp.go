package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/mgomes/catscript/catscript"
)

var lspTypeNames = []string{"bool", "int", "list", "object", "string", "void"}

const (
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601

	severityError = 1

	kindFunction = 3
	kindVariable = 6
	kindKeyword  = 14
	kindType     = 25
)

type lspInboundMessage struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

type lspResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type lspOutboundMessage struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      *json.RawMessage  `json:"id,omitempty"`
	Method  string            `json:"method,omitempty"`
	Params  any               `json:"params,omitempty"`
	Result  any               `json:"result,omitempty"`
	Error   *lspResponseError `json:"error,omitempty"`
}

type lspPosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type lspRange struct {
	Start lspPosition `json:"start"`
	End   lspPosition `json:"end"`
}

type lspDiagnostic struct {
	Range    lspRange `json:"range"`
	Severity int      `json:"severity"`
	Source   string   `json:"source"`
	Message  string   `json:"message"`
}

type lspPublishParams struct {
	URI         string          `json:"uri"`
	Diagnostics []lspDiagnostic `json:"diagnostics"`
}

type lspCompletionItem struct {
	Label  string `json:"label"`
	Kind   int    `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

type lspMarkup struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type lspHover struct {
	Contents lspMarkup `json:"contents"`
}

type lspDocumentParams struct {
	TextDocument struct {
		URI  string `json:"uri"`
		Text string `json:"text"`
	} `json:"textDocument"`
	ContentChanges []struct {
		Text string `json:"text"`
	} `json:"contentChanges"`
	Position lspPosition `json:"position"`
}

// lspDocument is an open file together with the result of checking it.
type lspDocument struct {
	text    string
	program *catscript.Program
	err     error
}

type lspServer struct {
	reader *textproto.Reader
	writer *bufio.Writer
	engine *catscript.Engine
	docs   map[string]*lspDocument
}

type lspHandler func(s *lspServer, params lspDocumentParams) (any, error)

var lspRequests = map[string]lspHandler{
	"initialize":              (*lspServer).initialize,
	"shutdown":                func(*lspServer, lspDocumentParams) (any, error) { return nil, nil },
	"textDocument/completion": (*lspServer).completion,
	"textDocument/hover":      (*lspServer).hover,
}

func newLSPServer(in io.Reader, out io.Writer) *lspServer {
	return &lspServer{
		reader: textproto.NewReader(bufio.NewReader(in)),
		writer: bufio.NewWriter(out),
		engine: catscript.MustNewEngine(catscript.Config{}),
		docs:   make(map[string]*lspDocument),
	}
}

func runLSP() error {
	return newLSPServer(os.Stdin, os.Stdout).serve()
}

func (s *lspServer) serve() error {
	for {
		payload, err := s.readPayload()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		var incoming lspInboundMessage
		if json.Unmarshal(payload, &incoming) != nil {
			continue
		}
		for _, msg := range s.handleMessage(incoming) {
			if err := s.writePayload(msg); err != nil {
				return err
			}
		}
		if incoming.Method == "exit" {
			return nil
		}
	}
}

// handleMessage answers requests from lspRequests and applies document
// notifications. Unknown notifications are ignored.
func (s *lspServer) handleMessage(incoming lspInboundMessage) []lspOutboundMessage {
	var params lspDocumentParams
	var paramsErr error
	if len(incoming.Params) > 0 {
		paramsErr = json.Unmarshal(incoming.Params, &params)
	}

	if incoming.ID == nil {
		if paramsErr != nil {
			return nil
		}
		return s.notify(incoming.Method, params)
	}

	reply := lspOutboundMessage{JSONRPC: "2.0", ID: incoming.ID}
	handler, ok := lspRequests[incoming.Method]
	switch {
	case !ok:
		reply.Error = &lspResponseError{Code: codeMethodNotFound, Message: "method not found"}
	case paramsErr != nil:
		reply.Error = &lspResponseError{Code: codeInvalidParams, Message: "invalid " + incoming.Method + " params"}
	default:
		result, err := handler(s, params)
		if err != nil {
			reply.Error = &lspResponseError{Code: codeInvalidParams, Message: err.Error()}
		}
		reply.Result = result
	}
	return []lspOutboundMessage{reply}
}

func (s *lspServer) notify(method string, params lspDocumentParams) []lspOutboundMessage {
	uri := params.TextDocument.URI
	switch method {
	case "textDocument/didOpen":
		return []lspOutboundMessage{s.update(uri, params.TextDocument.Text)}
	case "textDocument/didChange":
		if len(params.ContentChanges) == 0 {
			return nil
		}
		return []lspOutboundMessage{s.update(uri, params.ContentChanges[len(params.ContentChanges)-1].Text)}
	case "textDocument/didClose":
		delete(s.docs, uri)
		return []lspOutboundMessage{publish(uri, []lspDiagnostic{})}
	}
	return nil
}

func (s *lspServer) initialize(lspDocumentParams) (any, error) {
	return map[string]any{
		"capabilities": map[string]any{
			"textDocumentSync":   1,
			"hoverProvider":      true,
			"completionProvider": map[string]any{"resolveProvider": false},
		},
		"serverInfo": map[string]any{"name": "catscript-lsp"},
	}, nil
}

// update rechecks a document and publishes its diagnostics.
func (s *lspServer) update(uri, text string) lspOutboundMessage {
	doc := checkDocument(s.engine, text)
	s.docs[uri] = doc
	return publish(uri, doc.diagnostics())
}

func publish(uri string, diags []lspDiagnostic) lspOutboundMessage {
	return lspOutboundMessage{
		JSONRPC: "2.0",
		Method:  "textDocument/publishDiagnostics",
		Params:  lspPublishParams{URI: uri, Diagnostics: diags},
	}
}

func (s *lspServer) document(uri string) *lspDocument {
	if doc, ok := s.docs[uri]; ok {
		return doc
	}
	return checkDocument(s.engine, "")
}

func (s *lspServer) completion(params lspDocumentParams) (any, error) {
	return map[string]any{
		"isIncomplete": false,
		"items":        s.document(params.TextDocument.URI).completions(),
	}, nil
}

func (s *lspServer) hover(params lspDocumentParams) (any, error) {
	doc := s.document(params.TextDocument.URI)
	word := wordAtPosition(doc.text, params.Position.Line, params.Position.Character)
	if word == "" {
		return nil, nil
	}
	return lspHover{Contents: lspMarkup{Kind: "markdown", Value: doc.describe(word)}}, nil
}

func checkDocument(engine *catscript.Engine, text string) *lspDocument {
	// program is nil only after a fatal parse error.
	program, err := engine.Check(text)
	return &lspDocument{text: text, program: program, err: err}
}

func (d *lspDocument) diagnostics() []lspDiagnostic {
	out := []lspDiagnostic{}
	var diags *catscript.DiagnosticsError
	var parseErr *catscript.ParseError
	switch {
	case d.err == nil:
	case errors.As(d.err, &diags):
		for _, diag := range diags.Diagnostics {
			out = append(out, d.diagnosticAt(diag.Token, diag.Message()))
		}
	case errors.As(d.err, &parseErr):
		out = append(out, d.diagnosticAt(parseErr.Token, parseErr.Message))
	default:
		out = append(out, lspDiagnostic{Severity: severityError, Source: "catscript-lsp", Message: d.err.Error()})
	}
	return out
}

// diagnosticAt underlines tok, converting its rune column to UTF-16 units.
func (d *lspDocument) diagnosticAt(tok catscript.Token, message string) lspDiagnostic {
	line := max(tok.Pos.Line-1, 0)
	text := ""
	if lines := strings.Split(d.text, "\n"); line < len(lines) {
		text = lines[line]
	}
	runes := []rune(text)
	col := min(max(tok.Pos.Column-1, 0), len(runes))
	start := utf16Len(runes[:col])
	width := max(utf16Len([]rune(tok.Literal)), 1)
	return lspDiagnostic{
		Range: lspRange{
			Start: lspPosition{Line: line, Character: start},
			End:   lspPosition{Line: line, Character: start + width},
		},
		Severity: severityError,
		Source:   "catscript-lsp",
		Message:  message,
	}
}

func (d *lspDocument) functions() []*catscript.FunctionDefinition {
	if d.program == nil {
		return nil
	}
	return d.program.Functions()
}

// variables maps every declared variable and parameter name to its type,
// first declaration wins.
func (d *lspDocument) variables() map[string]string {
	vars := make(map[string]string)
	if d.program == nil {
		return vars
	}
	catscript.Inspect(d.program, func(n catscript.Node) bool {
		switch n := n.(type) {
		case *catscript.VariableDeclaration:
			if _, seen := vars[n.Name]; !seen {
				vars[n.Name] = "var " + n.Name + typeSuffix(n.DeclaredType())
			}
		case *catscript.FunctionDefinition:
			for _, p := range n.Parameters {
				if _, seen := vars[p.Name]; !seen {
					vars[p.Name] = "param " + p.Name + typeSuffix(p.Type)
				}
			}
		}
		return true
	})
	return vars
}

func typeSuffix(t *catscript.Type) string {
	if t == nil {
		return ""
	}
	return ": " + t.String()
}

func (d *lspDocument) completions() []lspCompletionItem {
	items := make([]lspCompletionItem, 0, len(catscript.Keywords)+len(lspTypeNames))
	for _, kw := range catscript.Keywords {
		items = append(items, lspCompletionItem{Label: kw, Kind: kindKeyword, Detail: "keyword"})
	}
	for _, name := range lspTypeNames {
		items = append(items, lspCompletionItem{Label: name, Kind: kindType, Detail: "type"})
	}
	for _, fn := range d.functions() {
		items = append(items, lspCompletionItem{Label: fn.Name, Kind: kindFunction, Detail: functionSignature(fn)})
	}
	for name, detail := range d.variables() {
		items = append(items, lspCompletionItem{Label: name, Kind: kindVariable, Detail: detail})
	}
	slices.SortStableFunc(items, func(a, b lspCompletionItem) int {
		return strings.Compare(a.Label, b.Label)
	})
	return items
}

// describe renders hover text for word: a signature for functions and
// variables, otherwise its lexical class.
func (d *lspDocument) describe(word string) string {
	for _, fn := range d.functions() {
		if fn.Name == word {
			return "```catscript\n" + functionSignature(fn) + "\n```"
		}
	}
	if decl, ok := d.variables()[word]; ok {
		return "```catscript\n" + decl + "\n```"
	}
	return fmt.Sprintf("`%s`\n\nCatScript %s", word, classifyWord(word))
}

func classifyWord(word string) string {
	switch {
	case slices.Contains(catscript.Keywords, word):
		return "keyword"
	case slices.Contains(lspTypeNames, word):
		return "type"
	default:
		return "symbol"
	}
}

// wordAtPosition returns the identifier under, or immediately before, the
// given UTF-16 offset.
func wordAtPosition(source string, line, character int) string {
	lines := strings.Split(source, "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	runes := []rune(lines[line])
	at := runeOffset(runes, max(character, 0))
	if at == len(runes) || (at < len(runes) && !isWordRune(runes[at])) {
		at--
	}
	if at < 0 || !isWordRune(runes[at]) {
		return ""
	}

	start, end := at, at+1
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	return string(runes[start:end])
}

// runeOffset converts an LSP character offset, counted in UTF-16 code units,
// to an index into runes.
func runeOffset(runes []rune, character int) int {
	units := 0
	for i, r := range runes {
		if units >= character {
			return i
		}
		units += utf16.RuneLen(r)
	}
	return len(runes)
}

func utf16Len(runes []rune) int {
	n := 0
	for _, r := range runes {
		n += utf16.RuneLen(r)
	}
	return n
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// readPayload reads one base-protocol message: MIME-style headers, a blank
// line, then Content-Length bytes of JSON.
func (s *lspServer) readPayload() ([]byte, error) {
	header, err := s.reader.ReadMIMEHeader()
	if err != nil {
		if errors.Is(err, io.EOF) && len(header) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	length := header.Get("Content-Length")
	if length == "" {
		return nil, errors.New("missing Content-Length header")
	}
	n, err := strconv.Atoi(length)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid Content-Length %q", length)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(s.reader.R, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *lspServer) writePayload(msg lspOutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.writer, "Content-Length: %d\r\n\r\n", len(data))
	s.writer.Write(data)
	return s.writer.Flush()
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/lober-org/welovedogs/cmd/internal/passphrase"
	"github.com/lober-org/welovedogs/core"
	"github.com/lober-org/welovedogs/crypto"
)

const (
	rpcURLEnv        = "WLD_RPC_URL"
	rpcTokenEnv      = "WLD_RPC_TOKEN"
	keystorePassEnv  = "WLD_KEYSTORE_PASS"
	defaultRPCTarget = "http://127.0.0.1:8547"
)

var (
	rpcEndpoint  = defaultRPCEndpoint()
	rpcAuthToken = os.Getenv(rpcTokenEnv)
	chainID      = core.DefaultChainID
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	args, err := applyGlobalFlags(args)
	if err != nil {
		return err
	}
	if len(args) < 1 {
		printUsage()
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	if len(args)-1 < cmd.minArgs {
		return fmt.Errorf("usage: wld-cli %s %s", args[0], cmd.usage)
	}
	return cmd.run(args[1:])
}

type command struct {
	usage   string
	help    string
	minArgs int
	run     func(args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"keygen":                 {"<keystore>", "Generate a key and write it to an encrypted keystore", 1, keygen},
		"address":                {"<keystore>", "Print the address of a keystore", 1, showAddress},
		"nonce":                  {"<address>", "Print the next signed-call nonce of an address", 1, showNonce},
		"init-donations":         {"", "Reset the donation counter (requires WLD_RPC_TOKEN)", 0, initDonations},
		"donate":                 {"<keystore> <recipient> <amount> <asset> [memo]", "Record a donation signed by the keystore", 4, donate},
		"count":                  {"", "Print the number of recorded donations", 0, donationCount},
		"get":                    {"<id>", "Print one donation", 1, getDonation},
		"total":                  {"<recipient>", "Print the total received by a recipient", 1, totalDonated},
		"donor-donations":        {"<address> [limit]", "List donations made by an address, newest first", 1, donorDonations},
		"recipient-donations":    {"<address> [limit]", "List donations received by an address, newest first", 1, recipientDonations},
		"badge-init":             {"<owner> [baseURI] [name] [symbol]", "Create the badge collection (requires WLD_RPC_TOKEN)", 1, badgeInit},
		"badge-mint":             {"<keystore> <to>", "Mint a badge; the keystore must hold the collection owner key", 2, badgeMint},
		"badge-transfer":         {"<keystore> <to> <tokenId>", "Transfer a badge held by the keystore", 3, badgeTransfer},
		"badge-burn":             {"<keystore> <tokenId>", "Burn a badge held by the keystore", 2, badgeBurn},
		"badge-pause":            {"<keystore>", "Pause badge operations", 1, badgePause},
		"badge-unpause":          {"<keystore>", "Resume badge operations", 1, badgeUnpause},
		"badge-set-uri":          {"<keystore> <tokenId> <uri>", "Override the metadata URI of a badge", 3, badgeSetURI},
		"badge-uri":              {"<tokenId>", "Print the metadata URI of a badge", 1, badgeURI},
		"badge-owner":            {"<tokenId>", "Print the holder of a badge", 1, badgeOwner},
		"badge-tokens":           {"<address>", "List badges held by an address", 1, badgeTokens},
		"badge-collection-owner": {"", "Print the badge collection owner", 0, badgeCollectionOwner},
		"badge-transfer-owner":   {"<keystore> <newOwner>", "Hand the badge collection to a new owner", 2, badgeTransferOwner},
		"stats":                  {"<recipient>", "Print indexed statistics for a recipient", 1, recipientStats},
		"donor-stats":            {"<donor>", "Print indexed statistics for a donor", 1, donorStats},
		"recent":                 {"[limit]", "List the most recent indexed donations", 0, recentDonations},
	}
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv(rpcURLEnv)); v != "" {
		return v
	}
	return defaultRPCTarget
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		if name != "--rpc" && name != "--chain-id" {
			out = append(out, arg)
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for %s", name)
			}
			value = args[i+1]
			i++
		}
		switch name {
		case "--rpc":
			rpcEndpoint = value
		case "--chain-id":
			parsed, err := strconv.ParseUint(strings.TrimSpace(value), 0, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid --chain-id: %w", err)
			}
			chainID = parsed
		}
	}
	return out, nil
}

func doRPCRequest(payload []byte, requireAuth bool) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if strings.TrimSpace(rpcAuthToken) == "" {
			return nil, fmt.Errorf("privileged RPC call requires %s to be set", rpcTokenEnv)
		}
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(rpcAuthToken))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	return resp, nil
}

func callRPC(method string, param interface{}, requireAuth bool) (json.RawMessage, error) {
	params := []interface{}{}
	if param != nil {
		params = append(params, param)
	}
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}
	resp, err := doRPCRequest(body, requireAuth)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response from node: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("error from node (%d): %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func printJSONResult(result json.RawMessage) {
	if len(result) == 0 || string(result) == "null" {
		fmt.Println("No result.")
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		fmt.Println(string(result))
		return
	}
	fmt.Println(buf.String())
}

func loadKey(path string) (*crypto.PrivateKey, error) {
	pass, err := passphrase.NewSource(keystorePassEnv, "").Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("keystore %s not found. run wld-cli keygen first", path)
		}
		return nil, fmt.Errorf("failed to open keystore %s: %w", path, err)
	}
	return key, nil
}

// sendSigned fetches the signer's nonce, signs the call and submits it.
func sendSigned(key *crypto.PrivateKey, method string, payload interface{}) (json.RawMessage, error) {
	signer := key.PubKey().Address().String()
	raw, err := callRPC("auth_nonce", map[string]string{"address": signer}, false)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	var nonce struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := json.Unmarshal(raw, &nonce); err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	call, err := core.NewSignedCall(method, payload)
	if err != nil {
		return nil, err
	}
	call.Nonce = nonce.Nonce
	if err := call.Sign(key, chainID); err != nil {
		return nil, err
	}
	return callRPC(method, call, false)
}

func printUsage() {
	fmt.Println("Usage: wld-cli [--rpc URL] [--chain-id ID] <command> [args]")
	fmt.Println()
	fmt.Printf("Keystores are unlocked with %s or an interactive prompt; administrative commands read %s.\n", keystorePassEnv, rpcTokenEnv)
	fmt.Println()
	fmt.Println("Commands:")
	for _, name := range commandNames() {
		cmd := commands[name]
		fmt.Printf("  %-22s %-45s %s\n", name, cmd.usage, cmd.help)
	}
}

func commandNames() []string {
	return []string{
		"keygen", "address", "nonce",
		"init-donations", "donate", "count", "get", "total", "donor-donations", "recipient-donations",
		"badge-init", "badge-mint", "badge-transfer", "badge-burn", "badge-pause", "badge-unpause",
		"badge-set-uri", "badge-uri", "badge-owner", "badge-tokens",
		"badge-collection-owner", "badge-transfer-owner",
		"stats", "donor-stats", "recent",
	}
}

package main

import (
	"fmt"
	"strconv"

	"github.com/lober-org/welovedogs/cmd/internal/passphrase"
	"github.com/lober-org/welovedogs/core"
	"github.com/lober-org/welovedogs/crypto"
)

func keygen(args []string) error {
	pass, err := passphraseForNewKey()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(args[0], key, pass); err != nil {
		return err
	}
	fmt.Printf("Address: %s\n", key.PubKey().Address().String())
	fmt.Printf("Keystore written to %s\n", args[0])
	return nil
}

func showAddress(args []string) error {
	key, err := loadKey(args[0])
	if err != nil {
		return err
	}
	fmt.Println(key.PubKey().Address().String())
	return nil
}

func showNonce(args []string) error {
	result, err := callRPC("auth_nonce", map[string]string{"address": args[0]}, false)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func initDonations([]string) error {
	if _, err := callRPC(core.MethodDonationInitialize, nil, true); err != nil {
		return err
	}
	fmt.Println("Donation counter reset.")
	return nil
}

func donate(args []string) error {
	key, err := loadKey(args[0])
	if err != nil {
		return err
	}
	payload := core.DonatePayload{
		Donor:     key.PubKey().Address().String(),
		Recipient: args[1],
		Amount:    args[2],
		Asset:     args[3],
	}
	if len(args) > 4 {
		memo := args[4]
		payload.Memo = &memo
	}
	result, err := sendSigned(key, core.MethodDonate, payload)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func donationCount([]string) error {
	result, err := callRPC("donation_count", nil, false)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func getDonation(args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid donation id %q", args[0])
	}
	result, err := callRPC("donation_get", map[string]uint64{"id": id}, false)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func totalDonated(args []string) error {
	result, err := callRPC("donation_totalDonated", map[string]string{"address": args[0]}, false)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func donorDonations(args []string) error {
	return listDonations("donation_donorDonations", args)
}

func recipientDonations(args []string) error {
	return listDonations("donation_recipientDonations", args)
}

func listDonations(method string, args []string) error {
	limit, err := parseLimit(args, 1, 20)
	if err != nil {
		return err
	}
	result, err := callRPC(method, map[string]interface{}{"address": args[0], "limit": limit}, false)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func parseLimit(args []string, index int, fallback uint64) (uint64, error) {
	if len(args) <= index {
		return fallback, nil
	}
	limit, err := strconv.ParseUint(args[index], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid limit %q", args[index])
	}
	return limit, nil
}

func recipientStats(args []string) error {
	result, err := callRPC("index_recipientStats", map[string]string{"address": args[0]}, false)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func donorStats(args []string) error {
	result, err := callRPC("index_donorStats", map[string]string{"address": args[0]}, false)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func recentDonations(args []string) error {
	limit, err := parseLimit(args, 0, 20)
	if err != nil {
		return err
	}
	result, err := callRPC("index_recent", map[string]uint64{"limit": limit}, false)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func passphraseForNewKey() (string, error) {
	return passphrase.NewSource(keystorePassEnv, "Choose keystore passphrase: ").Get()
}

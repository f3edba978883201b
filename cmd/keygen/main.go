// cmd/keygen/main.go
package main

import (
	"blockchain-service/internal/chains/ethereum"
	"blockchain-service/internal/security"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	vaultDirFlag = &cli.StringFlag{
		Name:    "vault-dir",
		Usage:   "directory of the encrypted file vault",
		Value:   "./vault",
		EnvVars: []string{"FILE_VAULT_DIR"},
	}
	vaultKeyFlag = &cli.StringFlag{
		Name:    "vault-key",
		Usage:   "AES-256 master key of the file vault (base64)",
		EnvVars: []string{"FILE_VAULT_KEY"},
	}
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "keygen",
		Usage: "manage the blockchain service wallet key",
		Commands: []*cli.Command{
			{
				Name:   "master-key",
				Usage:  "generate an AES-256 master key for the file vault",
				Action: masterKey,
			},
			{
				Name:  "wallet",
				Usage: "generate a wallet key, or import one, and optionally seal it into the file vault",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "import", Usage: "existing private key (hex) instead of generating one"},
					&cli.BoolFlag{Name: "seal", Usage: "store the key in the file vault instead of printing it"},
					vaultDirFlag,
					vaultKeyFlag,
				},
				Action: wallet,
			},
			{
				Name:   "show",
				Usage:  "print the address of the wallet key sealed in the file vault",
				Flags:  []cli.Flag{vaultDirFlag, vaultKeyFlag},
				Action: show,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func masterKey(c *cli.Context) error {
	key, err := security.GenerateMasterKey()
	if err != nil {
		return err
	}

	fmt.Println("==============================================")
	fmt.Println("Generated AES-256 Master Key:")
	fmt.Println("==============================================")
	fmt.Println(key)
	fmt.Println("==============================================")
	fmt.Println("Add this to your .env file as:")
	fmt.Println("FILE_VAULT_KEY=" + key)
	fmt.Println("==============================================")
	fmt.Println("KEEP THIS KEY SECURE! DO NOT COMMIT TO VERSION CONTROL!")
	return nil
}

func wallet(c *cli.Context) error {
	var (
		key *ethereum.WalletKey
		err error
	)
	if imported := c.String("import"); imported != "" {
		key, err = ethereum.ImportWalletKey(imported)
	} else {
		key, err = ethereum.GenerateWalletKey()
	}
	if err != nil {
		return err
	}

	fmt.Println("Address:    " + key.Address)
	fmt.Println("Public key: " + key.PublicKey)

	if !c.Bool("seal") {
		fmt.Println("Private key:", key.PrivateKey)
		fmt.Println("Add this to your .env file as:")
		fmt.Println("BLOCKCHAIN_WALLET_PRIVATE_KEY=" + key.PrivateKey)
		return nil
	}

	vault, err := fileVault(c)
	if err != nil {
		return err
	}
	if err := vault.SetSecret(c.Context, security.WalletKeyPath, key.PrivateKey); err != nil {
		return err
	}

	fmt.Printf("Sealed into %s. Run the service with VAULT_PROVIDER=file.\n", c.String("vault-dir"))
	return nil
}

func show(c *cli.Context) error {
	vault, err := fileVault(c)
	if err != nil {
		return err
	}

	privateKey, err := vault.GetWalletKey(c.Context)
	if err != nil {
		return err
	}
	key, err := ethereum.ImportWalletKey(privateKey)
	if err != nil {
		return err
	}

	fmt.Println("Address: " + key.Address)
	return nil
}

func fileVault(c *cli.Context) (*security.Vault, error) {
	if c.String("vault-key") == "" {
		return nil, errors.New("--vault-key or FILE_VAULT_KEY is required, generate one with `keygen master-key`")
	}

	provider, err := security.NewFileVaultProvider(c.String("vault-dir"), c.String("vault-key"))
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return security.NewVault(provider, 0, logger), nil
}

package utilities

import (
	"log"
	"os"
	"time"
)

// CreateLog guarda payloads crudos (por ejemplo mensajes del canal que no se
// pudieron interpretar) en un archivo diario bajo logs/.
func CreateLog(prefix, message string) {
	filename := "logs/" + prefix + "_" + time.Now().Format("20060102") + ".log"

	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Println("Error creando carpeta de logs:", err)
		return
	}

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Println("Error creando log:", err)
		return
	}
	defer f.Close()

	logLine := time.Now().Format("15:04:05") + " - " + message + "\n"
	if _, err := f.WriteString(logLine); err != nil {
		log.Println("Error escribiendo log:", err)
	}
}
